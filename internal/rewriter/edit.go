// Package rewriter collects textual corrections against one source buffer,
// rejects the ones that conflict or point outside the buffer, and applies the
// rest in a single pass.
package rewriter

import (
	"fmt"

	"github.com/donaldgifford/deflint/internal/source"
)

// Op is the kind of textual operation an Edit performs.
type Op int

const (
	// OpInsertBefore inserts text immediately before the anchor.
	OpInsertBefore Op = iota
	// OpInsertAfter inserts text immediately after the anchor.
	OpInsertAfter
	// OpRemove deletes the anchor.
	OpRemove
	// OpReplace replaces the anchor with text.
	OpReplace
)

func (o Op) String() string {
	switch o {
	case OpInsertBefore:
		return "insert_before"
	case OpInsertAfter:
		return "insert_after"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	}
	return "unknown"
}

// Edit is a plain description of one textual change. It holds no reference
// to the syntax tree.
type Edit struct {
	Anchor source.Range
	Op     Op
	Text   string
}

func (e Edit) String() string {
	if e.Op == OpRemove {
		return fmt.Sprintf("%s %v", e.Op, e.Anchor)
	}
	return fmt.Sprintf("%s %v %q", e.Op, e.Anchor, e.Text)
}

// InsertBefore inserts text before r.
func InsertBefore(r source.Range, text string) Edit {
	return Edit{Anchor: r, Op: OpInsertBefore, Text: text}
}

// InsertAfter inserts text after r.
func InsertAfter(r source.Range, text string) Edit {
	return Edit{Anchor: r, Op: OpInsertAfter, Text: text}
}

// Remove deletes r.
func Remove(r source.Range) Edit {
	return Edit{Anchor: r, Op: OpRemove}
}

// Replace substitutes text for r.
func Replace(r source.Range, text string) Edit {
	return Edit{Anchor: r, Op: OpReplace, Text: text}
}

// Wrap surrounds r with prefix and suffix.
func Wrap(r source.Range, prefix, suffix string) []Edit {
	return []Edit{InsertBefore(r, prefix), InsertAfter(r, suffix)}
}

// target is the range of original text the edit rewrites.
func (e Edit) target() source.Range {
	switch e.Op {
	case OpInsertBefore:
		return source.Point(e.Anchor.Start)
	case OpInsertAfter:
		return source.Point(e.Anchor.End)
	}
	return e.Anchor
}

// rank orders edits that rewrite the same offset so the text reads: what
// follows the previous anchor, what precedes the next anchor, then the
// replacement of the next anchor.
func (e Edit) rank() int {
	switch {
	case e.Op == OpInsertAfter && !e.Anchor.Empty():
		return 0
	case e.Op == OpInsertBefore:
		return 1
	case e.Op == OpInsertAfter:
		return 2
	}
	return 3
}

// composable reports whether a and b may share overlapping anchors: only an
// insert-before and an insert-after on the identical anchor.
func composable(a, b Edit) bool {
	if a.Anchor != b.Anchor {
		return false
	}
	return (a.Op == OpInsertBefore && b.Op == OpInsertAfter) ||
		(a.Op == OpInsertAfter && b.Op == OpInsertBefore)
}

func conflicts(a, b Edit) bool {
	return a.Anchor.Overlaps(b.Anchor) && !composable(a, b)
}
