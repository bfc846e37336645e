package cop

import (
	"errors"
	"sort"

	"github.com/donaldgifford/deflint/internal/rewriter"
	"github.com/donaldgifford/deflint/internal/source"
)

// ErrSealed is returned when an offence is added after Finalize.
var ErrSealed = errors.New("collector already finalized")

// Offence is one reported violation.
type Offence struct {
	Rule     string
	Severity Severity
	Range    source.Range
	Message  string
	// Edits is the correction the rule proposed, if any.
	Edits []rewriter.Edit
	// Corrected is set when the correction was applied.
	Corrected bool

	priority   int
	correction int // rewriter id + 1; zero when no correction was registered.
}

// Correctable reports whether the rule proposed a correction.
func (o Offence) Correctable() bool {
	return len(o.Edits) > 0
}

// Collector accumulates the offences of one traversal.
type Collector struct {
	offences []Offence
	sealed   bool
}

// Add records o. It fails once the collector is finalized.
func (c *Collector) Add(o Offence) error {
	if c.sealed {
		return ErrSealed
	}
	c.offences = append(c.offences, o)
	return nil
}

// Len returns the number of offences added so far, duplicates included.
func (c *Collector) Len() int {
	return len(c.offences)
}

// Finalize seals the collector and returns its offences sorted by range
// start, range end and rule priority, with exact duplicates (same range and
// message) removed. Later calls return the same slice.
func (c *Collector) Finalize() []Offence {
	if c.sealed {
		return c.offences
	}
	c.sealed = true

	sort.SliceStable(c.offences, func(i, j int) bool {
		a, b := c.offences[i], c.offences[j]
		if cmp := a.Range.Compare(b.Range); cmp != 0 {
			return cmp < 0
		}
		return a.priority < b.priority
	})

	type key struct {
		rng source.Range
		msg string
	}
	seen := make(map[key]struct{}, len(c.offences))
	out := c.offences[:0]
	for _, o := range c.offences {
		k := key{o.Range, o.Message}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, o)
	}
	c.offences = out
	return out
}
