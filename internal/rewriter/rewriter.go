package rewriter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/donaldgifford/deflint/internal/source"
)

var (
	// ErrConflictingEdits marks a correction dropped because one of its
	// edits overlaps an edit of another correction.
	ErrConflictingEdits = errors.New("conflicting edits")
	// ErrInvalidAnchor marks a correction dropped because an edit points
	// outside the buffer or has an inverted range.
	ErrInvalidAnchor = errors.New("invalid edit anchor")
	// ErrNoEdits marks a correction registered without any edit.
	ErrNoEdits = errors.New("correction has no edits")
)

// Correction is the set of edits that fixes one offence. It is applied
// atomically: all of its edits or none.
type Correction struct {
	ID    int
	Owner string
	Edits []Edit
}

// Dropped is a correction that was not applied, with the reason.
type Dropped struct {
	Correction
	Err error
}

// Change maps a rewritten range of the original text to the range of its
// replacement in the output.
type Change struct {
	Old source.Range
	New source.Range
}

// Result is the outcome of Apply.
type Result struct {
	Output  []byte
	Applied []Correction
	Dropped []Dropped
	// Changes are ordered by Old.Start.
	Changes []Change
}

// Changed reports whether any edit was applied.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// IsApplied reports whether the correction with the given id was applied.
func (r *Result) IsApplied(id int) bool {
	for _, c := range r.Applied {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger used for discarded corrections.
func WithLogger(log zerolog.Logger) Option {
	return func(rw *Rewriter) {
		rw.log = log
	}
}

// Rewriter accumulates corrections for one buffer. It is not safe for
// concurrent use; each file pass owns its own Rewriter.
type Rewriter struct {
	buf         *source.Buffer
	log         zerolog.Logger
	corrections []Correction
}

// New returns an empty Rewriter for buf.
func New(buf *source.Buffer, opts ...Option) *Rewriter {
	rw := &Rewriter{buf: buf, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(rw)
		}
	}
	return rw
}

// Add registers a correction and returns its id.
func (rw *Rewriter) Add(owner string, edits ...Edit) int {
	id := len(rw.corrections)
	rw.corrections = append(rw.corrections, Correction{
		ID:    id,
		Owner: owner,
		Edits: append([]Edit(nil), edits...),
	})
	return id
}

// Len returns the number of registered corrections.
func (rw *Rewriter) Len() int {
	return len(rw.corrections)
}

// Corrections returns the registered corrections in registration order.
func (rw *Rewriter) Corrections() []Correction {
	return rw.corrections
}

// flat is one edit tagged with its correction.
type flat struct {
	edit Edit
	corr int
	seq  int
}

// Apply validates every correction and applies the surviving ones to a copy
// of the buffer. Invalid and conflicting corrections are reported in
// Result.Dropped; they never partially apply.
func (rw *Rewriter) Apply() *Result {
	reasons := make([]error, len(rw.corrections))

	for i, c := range rw.corrections {
		reasons[i] = rw.validate(c)
		if errors.Is(reasons[i], ErrInvalidAnchor) {
			rw.log.Warn().
				Str("file", rw.buf.Path).
				Str("rule", c.Owner).
				Err(reasons[i]).
				Msg("discarding stale correction")
		}
	}

	edits := rw.flatten(reasons)
	rw.markConflicts(edits, reasons)

	result := &Result{}
	var live []flat
	for _, f := range edits {
		if reasons[f.corr] == nil {
			live = append(live, f)
		}
	}
	for i, c := range rw.corrections {
		if reasons[i] == nil {
			result.Applied = append(result.Applied, c)
			continue
		}
		result.Dropped = append(result.Dropped, Dropped{Correction: c, Err: reasons[i]})
	}

	result.Output, result.Changes = rw.splice(live)
	return result
}

func (rw *Rewriter) validate(c Correction) error {
	if len(c.Edits) == 0 {
		return ErrNoEdits
	}
	for _, e := range c.Edits {
		if !rw.buf.Contains(e.Anchor) {
			return fmt.Errorf("%w: %v in %d-byte buffer", ErrInvalidAnchor, e, rw.buf.Len())
		}
	}
	return nil
}

// flatten lists the edits of valid corrections sorted by anchor.
func (rw *Rewriter) flatten(reasons []error) []flat {
	var out []flat
	for i, c := range rw.corrections {
		if reasons[i] != nil {
			continue
		}
		for _, e := range c.Edits {
			out = append(out, flat{edit: e, corr: i, seq: len(out)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].edit.Anchor.Compare(out[j].edit.Anchor) < 0
	})
	return out
}

// markConflicts sweeps edits sorted by anchor start and drops both
// corrections of every conflicting pair.
func (rw *Rewriter) markConflicts(edits []flat, reasons []error) {
	for i := range edits {
		a := edits[i]
		// Anchors that start after a ends cannot overlap it.
		for j := i + 1; j < len(edits) && edits[j].edit.Anchor.Start <= a.edit.Anchor.End; j++ {
			b := edits[j]
			if !conflicts(a.edit, b.edit) {
				continue
			}
			for _, pair := range [][2]flat{{a, b}, {b, a}} {
				own, other := pair[0], pair[1]
				if reasons[own.corr] != nil {
					continue
				}
				reasons[own.corr] = fmt.Errorf("%w: %v overlaps %v from %s",
					ErrConflictingEdits, own.edit, other.edit, rw.corrections[other.corr].Owner)
				rw.log.Debug().
					Str("file", rw.buf.Path).
					Str("rule", rw.corrections[own.corr].Owner).
					Err(reasons[own.corr]).
					Msg("dropping conflicting correction")
			}
		}
	}
}

// splice applies edits by descending offset so earlier offsets stay valid,
// then derives the old-to-new change map in ascending order.
func (rw *Rewriter) splice(edits []flat) ([]byte, []Change) {
	sort.SliceStable(edits, func(i, j int) bool {
		ti, tj := edits[i].edit.target(), edits[j].edit.target()
		if ti.Start != tj.Start {
			return ti.Start > tj.Start
		}
		if ri, rj := edits[i].edit.rank(), edits[j].edit.rank(); ri != rj {
			return ri > rj
		}
		return edits[i].seq > edits[j].seq
	})

	out := append([]byte(nil), rw.buf.Bytes()...)
	for _, f := range edits {
		t := f.edit.target()
		tail := append([]byte(f.edit.Text), out[t.End:]...)
		out = append(out[:t.Start], tail...)
	}

	changes := make([]Change, 0, len(edits))
	delta := 0
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i].edit
		t := e.target()
		start := int(t.Start) + delta
		newRange, err := source.NewRange(start, start+len(e.Text))
		if err != nil {
			continue
		}
		changes = append(changes, Change{Old: t, New: newRange})
		delta += len(e.Text) - int(t.Len())
	}
	return out, changes
}
