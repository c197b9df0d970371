package parser

import "io"

// Selector walks a line sequence once, front to back, and reports for each
// line whether it falls inside one of a sorted list of spans. It must be
// advanced exactly once per line, in order.
type Selector struct {
	spans []Span
	total int

	cur   int // position in spans; len(spans) once exhausted
	index int // index of the next line to answer for
	last  int // ordinal of the span holding the last answered line, or -1
}

// NewSelector creates a selector over total lines
func NewSelector(spans []Span, total int) *Selector {
	return &Selector{spans: spans, total: total, last: -1}
}

// Next reports whether the next line lies inside a span. It returns io.EOF
// once every line has been answered for.
func (s *Selector) Next() (bool, error) {
	if s.index >= s.total {
		return false, io.EOF
	}

	for s.cur < len(s.spans) && s.index > s.spans[s.cur].End {
		s.cur++
	}

	in := s.cur < len(s.spans) && s.spans[s.cur].Contains(s.index)
	s.last = -1
	if in {
		s.last = s.cur
	}
	s.index++
	return in, nil
}

// Span returns the ordinal of the span that contained the line last
// answered for by Next, or -1 if that line was outside every span.
func (s *Selector) Span() int {
	return s.last
}

