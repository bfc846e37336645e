// Package diff renders unified diffs from known byte-level changes.
//
// The caller already knows which spans of the old text were rewritten, so no
// line matching is needed: every change is widened to whole lines, changes
// sharing a line are merged into one block, and blocks close enough to share
// context are printed as one hunk.
package diff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// contextLines is the number of unchanged lines shown around each hunk.
const contextLines = 3

// Change records that old[OldStart:OldEnd] became new[NewStart:NewEnd].
type Change struct {
	OldStart, OldEnd int
	NewStart, NewEnd int
}

// Unified generates a unified diff between oldText and newText.
// Returns an empty string if the inputs are identical.
func Unified(filename, oldText, newText string) string {
	if oldText == newText {
		return ""
	}
	return FromChanges(filename, []byte(oldText), []byte(newText), []Change{span(oldText, newText)})
}

// span returns the single change between the common prefix and suffix.
func span(a, b string) Change {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	return Change{
		OldStart: prefix, OldEnd: len(a) - suffix,
		NewStart: prefix, NewEnd: len(b) - suffix,
	}
}

// FromChanges renders the diff produced by applying changes to oldText.
// Changes must not overlap; they are sorted by OldStart before use.
func FromChanges(filename string, oldText, newText []byte, changes []Change) string {
	if bytes.Equal(oldText, newText) || len(changes) == 0 {
		return ""
	}

	old := newLineIndex(oldText)
	upd := newLineIndex(newText)
	blocks := buildBlocks(old, upd, changes)
	if len(blocks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", filename)
	fmt.Fprintf(&b, "+++ b/%s\n", filename)

	for _, group := range groupBlocks(blocks) {
		writeHunk(&b, old, upd, group)
	}

	return b.String()
}

// lineIndex is a text split into lines that keep their newline.
type lineIndex struct {
	text   []byte
	starts []int
	lines  []string
}

func newLineIndex(text []byte) *lineIndex {
	idx := &lineIndex{text: text, lines: splitLines(string(text))}
	off := 0
	for _, l := range idx.lines {
		idx.starts = append(idx.starts, off)
		off += len(l)
	}
	return idx
}

// splitLines splits text into lines, preserving the trailing newline
// behavior. An empty string produces zero lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	// SplitAfter leaves an empty trailing element when s ends with \n.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineAt returns the index of the line containing off. Offsets at or past
// the end map to the last line.
func (x *lineIndex) lineAt(off int) int {
	if len(x.lines) == 0 {
		return 0
	}
	i := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > off }) - 1
	return min(max(i, 0), len(x.lines)-1)
}

// lineStart returns the byte offset where line i starts.
func (x *lineIndex) lineStart(i int) int {
	if i >= len(x.starts) {
		return len(x.text)
	}
	return x.starts[i]
}

// block is a run of changed lines: old[oldIdx:oldIdx+oldN] replaced by
// new[newIdx:newIdx+newN].
type block struct {
	oldIdx, oldN int
	newIdx, newN int
}

// buildBlocks widens changes to whole lines and merges the ones sharing a
// line. Text between blocks is unchanged, so a block's position in the new
// text follows from the byte delta of the blocks before it.
func buildBlocks(old, upd *lineIndex, changes []Change) []block {
	sorted := append([]Change(nil), changes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OldStart < sorted[j].OldStart })

	var blocks []block
	delta := 0
	for i := 0; i < len(sorted); {
		first := old.lineAt(sorted[i].OldStart)
		last := old.lineAt(sorted[i].OldEnd)
		blockDelta := 0
		for i < len(sorted) && old.lineAt(sorted[i].OldStart) <= last {
			c := sorted[i]
			last = max(last, old.lineAt(c.OldEnd))
			blockDelta += (c.NewEnd - c.NewStart) - (c.OldEnd - c.OldStart)
			i++
		}

		oldFrom := old.lineStart(first)
		oldTo := old.lineStart(last + 1)
		newFrom := clamp(oldFrom+delta, len(upd.text))
		newTo := clamp(oldTo+delta+blockDelta, len(upd.text))
		delta += blockDelta

		b := block{
			oldIdx: first,
			oldN:   len(splitLines(string(old.text[oldFrom:oldTo]))),
			newIdx: bytes.Count(upd.text[:newFrom], []byte("\n")),
			newN:   len(splitLines(string(upd.text[newFrom:max(newFrom, newTo)]))),
		}
		if b = trim(b, old, upd); b.oldN > 0 || b.newN > 0 {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func clamp(v, hi int) int {
	return min(max(v, 0), hi)
}

// trim drops identical lines from both ends of a block.
func trim(b block, old, upd *lineIndex) block {
	for b.oldN > 0 && b.newN > 0 && old.lines[b.oldIdx] == upd.lines[b.newIdx] {
		b.oldIdx++
		b.newIdx++
		b.oldN--
		b.newN--
	}
	for b.oldN > 0 && b.newN > 0 &&
		old.lines[b.oldIdx+b.oldN-1] == upd.lines[b.newIdx+b.newN-1] {
		b.oldN--
		b.newN--
	}
	return b
}

// groupBlocks combines blocks that are close enough that their contexts overlap.
func groupBlocks(blocks []block) [][]block {
	var groups [][]block
	for _, b := range blocks {
		if n := len(groups); n > 0 {
			prev := groups[n-1][len(groups[n-1])-1]
			if b.oldIdx-(prev.oldIdx+prev.oldN) <= 2*contextLines {
				groups[n-1] = append(groups[n-1], b)
				continue
			}
		}
		groups = append(groups, []block{b})
	}
	return groups
}

// writeHunk writes one hunk in unified diff format.
func writeHunk(b *strings.Builder, old, upd *lineIndex, blocks []block) {
	first := blocks[0]
	oldStart := max(first.oldIdx-contextLines, 0)
	newStart := first.newIdx - (first.oldIdx - oldStart)

	last := blocks[len(blocks)-1]
	oldEnd := min(last.oldIdx+last.oldN+contextLines, len(old.lines))

	oldCount := oldEnd - oldStart
	newCount := oldCount
	for _, blk := range blocks {
		newCount += blk.newN - blk.oldN
	}

	fmt.Fprintf(b, "@@ -%s +%s @@\n", rangeHeader(oldStart, oldCount), rangeHeader(newStart, newCount))

	cursor := oldStart
	for _, blk := range blocks {
		for ; cursor < blk.oldIdx; cursor++ {
			writeLine(b, ' ', old.lines[cursor])
		}
		for i := range blk.oldN {
			writeLine(b, '-', old.lines[blk.oldIdx+i])
		}
		for i := range blk.newN {
			writeLine(b, '+', upd.lines[blk.newIdx+i])
		}
		cursor = blk.oldIdx + blk.oldN
	}
	for ; cursor < oldEnd; cursor++ {
		writeLine(b, ' ', old.lines[cursor])
	}
}

// rangeHeader formats a hunk range. An empty range names the line before it.
func rangeHeader(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start)
	}
	return fmt.Sprintf("%d,%d", start+1, count)
}

func writeLine(b *strings.Builder, prefix byte, line string) {
	b.WriteByte(prefix)
	b.WriteString(line)
	if !strings.HasSuffix(line, "\n") {
		b.WriteString("\n\\ No newline at end of file\n")
	}
}
