package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/donaldgifford/deflint/internal/cop"
	"github.com/donaldgifford/deflint/internal/source"
)

// TextOptions configures the text renderer.
type TextOptions struct {
	Color bool
	// Summary appends a totals line after the offences.
	Summary bool
}

type palette struct {
	path, rule, caret, corrected *color.Color
	severity                     map[cop.Severity]*color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		path:      color.New(color.Bold),
		rule:      color.New(color.FgCyan),
		caret:     color.New(color.FgYellow, color.Bold),
		corrected: color.New(color.FgGreen),
		severity: map[cop.Severity]*color.Color{
			cop.SeverityConvention: color.New(color.FgBlue),
			cop.SeverityWarning:    color.New(color.FgMagenta),
			cop.SeverityError:      color.New(color.FgRed, color.Bold),
		},
	}
	for _, c := range p.all() {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *palette) all() []*color.Color {
	out := []*color.Color{p.path, p.rule, p.caret, p.corrected}
	for _, c := range p.severity {
		out = append(out, c)
	}
	return out
}

// Text writes one entry per offence:
//
//	path:line:col: C: [Corrected] Rule: message
//	<source line>
//	    ^^^^
func Text(w io.Writer, files []File, opts TextOptions) error {
	p := newPalette(opts.Color)
	var b strings.Builder

	for _, f := range files {
		for _, o := range f.Offences {
			writeOffence(&b, p, f.Buffer, o)
		}
	}
	if opts.Summary {
		s := Summarize(files)
		fmt.Fprintf(&b, "\n%s inspected, %s detected", plural(s.Files, "file"), plural(s.Offences, "offence"))
		if s.Corrected > 0 {
			fmt.Fprintf(&b, ", %s corrected", plural(s.Corrected, "offence"))
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeOffence(b *strings.Builder, p *palette, buf *source.Buffer, o cop.Offence) {
	pos := buf.LineCol(o.Range.Start)

	sev := p.severity[o.Severity]
	if sev == nil {
		sev = p.rule
	}
	fmt.Fprintf(b, "%s:%d:%d: %s: ", p.path.Sprint(buf.Path), pos.Line, pos.Col, sev.Sprint(o.Severity.Code()))
	switch {
	case o.Corrected:
		b.WriteString(p.corrected.Sprint("[Corrected]") + " ")
	case o.Correctable():
		b.WriteString("[Correctable] ")
	}
	fmt.Fprintf(b, "%s: %s\n", p.rule.Sprint(o.Rule), o.Message)

	line := buf.LineText(pos.Line)
	pad, width := caret(line, pos.Col-1, int(o.Range.Len()))
	b.WriteString(line)
	b.WriteByte('\n')
	b.WriteString(pad)
	b.WriteString(p.caret.Sprint(strings.Repeat("^", width)))
	b.WriteByte('\n')
}

// caret returns the indentation and underline width for a span starting at
// byte col of line and n bytes long, measured in terminal cells. Tabs in the
// indentation are kept so the caret lines up under them.
func caret(line string, col, n int) (string, int) {
	col = min(max(col, 0), len(line))
	end := min(col+n, len(line))

	var pad strings.Builder
	for _, r := range line[:col] {
		if r == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return pad.String(), max(runewidth.StringWidth(line[col:end]), 1)
}
