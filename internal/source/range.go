// Package source provides immutable source buffers and byte ranges into them.
package source

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// ErrInvertedRange is returned when a range would end before it starts.
var ErrInvertedRange = errors.New("range end precedes start")

// Range is a half-open byte span [Start, End) over one Buffer.
type Range struct {
	Start uint32
	End   uint32
}

// NewRange converts int offsets into a Range.
func NewRange(start, end int) (Range, error) {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		return Range{}, fmt.Errorf("range start %d: %w", start, err)
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		return Range{}, fmt.Errorf("range end %d: %w", end, err)
	}
	if e < s {
		return Range{}, fmt.Errorf("%d..%d: %w", start, end, ErrInvertedRange)
	}
	return Range{Start: s, End: e}, nil
}

// Point returns the empty range at off.
func Point(off uint32) Range {
	return Range{Start: off, End: off}
}

func (r Range) Empty() bool {
	return r.Start == r.End
}

func (r Range) Len() uint32 {
	return r.End - r.Start
}

// Valid reports whether Start <= End.
func (r Range) Valid() bool {
	return r.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Overlaps reports whether r and o share a byte. An empty range overlaps a
// non-empty one only when it sits strictly inside it, and two empty ranges
// overlap only when they are at the same offset.
func (r Range) Overlaps(o Range) bool {
	switch {
	case r.Empty() && o.Empty():
		return r.Start == o.Start
	case r.Empty():
		return o.Start < r.Start && r.Start < o.End
	case o.Empty():
		return r.Start < o.Start && o.Start < r.End
	}
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End <= r.End
}

// Cover returns the smallest range spanning both r and o.
func (r Range) Cover(o Range) Range {
	if o.Start < r.Start {
		r.Start = o.Start
	}
	if o.End > r.End {
		r.End = o.End
	}
	return r
}

// Compare orders ranges by start, then end.
func (r Range) Compare(o Range) int {
	switch {
	case r.Start < o.Start:
		return -1
	case r.Start > o.Start:
		return 1
	case r.End < o.End:
		return -1
	case r.End > o.End:
		return 1
	}
	return 0
}
