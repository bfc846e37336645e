package source

import (
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"
)

// LineCol is a human-readable position. Both fields are 1-based.
type LineCol struct {
	Line int
	Col  int
}

// Buffer is the immutable text of one source file. It is safe for concurrent
// readers.
type Buffer struct {
	Path    string
	content []byte
	lines   []uint32 // Byte offset of each line start.
}

// NewBuffer wraps content. The slice must not be modified afterwards.
func NewBuffer(path string, content []byte) (*Buffer, error) {
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		return nil, fmt.Errorf("%s: source too large: %w", path, err)
	}

	lines := make([]uint32, 1, 64)
	for i, c := range content {
		if c == '\n' {
			// Conversion cannot fail: len(content) fits in uint32.
			off, _ := safecast.Conv[uint32](i + 1)
			lines = append(lines, off)
		}
	}

	return &Buffer{Path: path, content: content, lines: lines}, nil
}

// FromString is a convenience for tests and stdin input.
func FromString(path, src string) (*Buffer, error) {
	return NewBuffer(path, []byte(src))
}

// Load reads a file from disk into a Buffer.
func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is provided by the caller.
	if err != nil {
		return nil, err
	}
	return NewBuffer(path, data)
}

// Bytes returns the underlying content. Callers must not modify it.
func (b *Buffer) Bytes() []byte {
	return b.content
}

// Source returns the content as a string.
func (b *Buffer) Source() string {
	return string(b.content)
}

func (b *Buffer) Len() uint32 {
	return uint32(len(b.content)) //nolint:gosec // bounded in NewBuffer.
}

// Contains reports whether r is a valid range within the buffer.
func (b *Buffer) Contains(r Range) bool {
	return r.Valid() && r.End <= b.Len()
}

// Text returns the text covered by r, or "" when r lies outside the buffer.
func (b *Buffer) Text(r Range) string {
	if !b.Contains(r) {
		return ""
	}
	return string(b.content[r.Start:r.End])
}

// Line returns the 1-based line containing off.
func (b *Buffer) Line(off uint32) int {
	// Largest i with lines[i] <= off.
	i := sort.Search(len(b.lines), func(i int) bool { return b.lines[i] > off })
	return i
}

// LineCol resolves off into a line and byte column.
func (b *Buffer) LineCol(off uint32) LineCol {
	line := b.Line(off)
	return LineCol{Line: line, Col: int(off-b.lines[line-1]) + 1}
}

// LineCount returns the number of lines; a trailing newline does not start
// a new line.
func (b *Buffer) LineCount() int {
	n := len(b.lines)
	if n > 1 && int(b.lines[n-1]) == len(b.content) {
		n--
	}
	return n
}

// LineText returns the text of a 1-based line without its newline.
func (b *Buffer) LineText(line int) string {
	if line < 1 || line > len(b.lines) {
		return ""
	}
	start := b.lines[line-1]
	end := b.Len()
	if line < len(b.lines) {
		end = b.lines[line] - 1
	}
	if end > start && b.content[end-1] == '\r' {
		end--
	}
	return string(b.content[start:end])
}
