package parser

import (
	"fmt"

	"easylabwork/internal/types"
)

// Span is an inclusive range of 0-based line indices covered by one block,
// from its start marker line to its end marker line.
type Span struct {
	Start, End int
}

// Check asserts that the span is not inverted
func (s Span) Check() error {
	if s.Start <= s.End {
		return nil
	}
	return fmt.Errorf("bad span: start must not follow end [%d,%d]", s.Start, s.End)
}

// Contains reports whether index i lies inside the span
func (s Span) Contains(i int) bool {
	return i >= s.Start && i <= s.End
}

// Len returns the number of lines covered by the span
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// AdjacentFunc is called when two consecutive spans touch with no line
// between them
type AdjacentFunc func(prev, next Span)

// PairBlocks finds every block of the given kind in lines and returns their
// spans in document order. Starts and ends are paired by rank: the n-th
// start marker closes with the n-th end marker. Nested blocks of the same
// kind are not detected.
//
// onAdjacent may be nil.
func PairBlocks(lines []types.Line, kind BlockKind, onAdjacent AdjacentFunc) ([]Span, error) {
	var starts, ends []int
	for i, l := range lines {
		if kind.Start.Match(l.Text) {
			starts = append(starts, i)
		}
		if kind.End.Match(l.Text) {
			ends = append(ends, i)
		}
	}

	if len(starts) != len(ends) {
		unbalanced := kind.Start
		if len(ends) > len(starts) {
			unbalanced = kind.End
		}
		return nil, &MarkerError{
			Block:      kind.Name,
			Err:        ErrMismatchedMarkers,
			Unbalanced: unbalanced.String(),
			StartLines: lineNumbers(lines, starts),
			EndLines:   lineNumbers(lines, ends),
		}
	}

	if len(starts) == 0 {
		return nil, nil
	}

	spans := make([]Span, len(starts))
	for i := range starts {
		span := Span{Start: starts[i], End: ends[i]}
		if err := span.Check(); err != nil {
			return nil, &MarkerError{
				Block:     kind.Name,
				Err:       ErrInvertedBlock,
				StartLine: lines[span.Start].Num,
				EndLine:   lines[span.End].Num,
			}
		}
		if i > 0 && onAdjacent != nil && spans[i-1].End+1 == span.Start {
			onAdjacent(spans[i-1], span)
		}
		spans[i] = span
	}
	return spans, nil
}

func lineNumbers(lines []types.Line, indices []int) []int {
	nums := make([]int, len(indices))
	for i, idx := range indices {
		nums[i] = lines[idx].Num
	}
	return nums
}
