package types

import (
	"strings"
)

// Line is a single line of a document. Text keeps its line terminator.
// Num is the 1-based line number in the file the line was read from and
// survives every transformation, so errors always point at the source.
type Line struct {
	Text string
	Num  int
}

// Document is an ordered sequence of lines
type Document struct {
	Lines []Line
}

// ParseDocument splits text into lines, keeping each terminator attached
// to its line. A trailing fragment without a newline is its own line.
func ParseDocument(text string) *Document {
	doc := &Document{}
	if text == "" {
		return doc
	}

	parts := strings.SplitAfter(text, "\n")
	// SplitAfter yields an empty tail when text ends with a newline
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	doc.Lines = make([]Line, len(parts))
	for i, p := range parts {
		doc.Lines[i] = Line{Text: p, Num: i + 1}
	}
	return doc
}

// NewDocument builds a document from raw line texts, numbering them from 1
func NewDocument(lines ...string) *Document {
	doc := &Document{Lines: make([]Line, len(lines))}
	for i, l := range lines {
		doc.Lines[i] = Line{Text: l, Num: i + 1}
	}
	return doc
}

// Len returns the number of lines
func (d *Document) Len() int {
	return len(d.Lines)
}

// String concatenates all lines back into file content
func (d *Document) String() string {
	var b strings.Builder
	for _, l := range d.Lines {
		b.WriteString(l.Text)
	}
	return b.String()
}
