package report

import (
	"encoding/json"
	"io"

	"github.com/donaldgifford/deflint/internal/cop"
	"github.com/donaldgifford/deflint/internal/rewriter"
	"github.com/donaldgifford/deflint/internal/source"
)

// LocationJSON is a byte span with resolved 1-based positions.
type LocationJSON struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// EditJSON is one proposed textual edit.
type EditJSON struct {
	Op       string       `json:"op"`
	Location LocationJSON `json:"location"`
	Text     string       `json:"text,omitempty"`
}

// OffenceJSON is one offence with its proposed correction.
type OffenceJSON struct {
	Rule      string       `json:"rule"`
	Severity  cop.Severity `json:"severity"`
	Message   string       `json:"message"`
	Location  LocationJSON `json:"location"`
	Corrected bool         `json:"corrected"`
	Edits     []EditJSON   `json:"edits,omitempty"`
}

// FileJSON groups the offences of one file.
type FileJSON struct {
	Path     string        `json:"path"`
	Offences []OffenceJSON `json:"offences"`
}

// Output is the root of the JSON document.
type Output struct {
	Files   []FileJSON `json:"files"`
	Summary Summary    `json:"summary"`
}

// JSON writes all results as one indented document.
func JSON(w io.Writer, files []File) error {
	out := Output{Files: make([]FileJSON, 0, len(files)), Summary: Summarize(files)}
	for _, f := range files {
		fj := FileJSON{Path: f.Buffer.Path, Offences: make([]OffenceJSON, 0, len(f.Offences))}
		for _, o := range f.Offences {
			fj.Offences = append(fj.Offences, offenceJSON(f.Buffer, o))
		}
		out.Files = append(out.Files, fj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func offenceJSON(buf *source.Buffer, o cop.Offence) OffenceJSON {
	oj := OffenceJSON{
		Rule:      o.Rule,
		Severity:  o.Severity,
		Message:   o.Message,
		Location:  makeLocation(buf, o.Range),
		Corrected: o.Corrected,
	}
	for _, e := range o.Edits {
		oj.Edits = append(oj.Edits, editJSON(buf, e))
	}
	return oj
}

func editJSON(buf *source.Buffer, e rewriter.Edit) EditJSON {
	return EditJSON{Op: e.Op.String(), Location: makeLocation(buf, e.Anchor), Text: e.Text}
}

func makeLocation(buf *source.Buffer, r source.Range) LocationJSON {
	start := buf.LineCol(r.Start)
	end := buf.LineCol(r.End)
	return LocationJSON{
		StartByte: r.Start,
		EndByte:   r.End,
		StartLine: start.Line,
		StartCol:  start.Col,
		EndLine:   end.Line,
		EndCol:    end.Col,
	}
}
