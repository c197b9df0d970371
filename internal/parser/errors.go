package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMismatchedMarkers means a block kind has more start than end
	// markers or the other way round.
	ErrMismatchedMarkers = errors.New("mismatched block markers")
	// ErrInvertedBlock means the n-th end marker precedes the n-th start marker
	ErrInvertedBlock = errors.New("inverted block")
)

// MarkerError reports a structural marker problem in a document. Line
// numbers are 1-based and refer to the source file.
type MarkerError struct {
	Block string // block kind, "solution" or "template"
	Err   error  // ErrMismatchedMarkers or ErrInvertedBlock

	// Set for ErrMismatchedMarkers
	Unbalanced string
	StartLines []int
	EndLines   []int

	// Set for ErrInvertedBlock
	StartLine int
	EndLine   int
}

func (e *MarkerError) Error() string {
	if errors.Is(e.Err, ErrInvertedBlock) {
		return fmt.Sprintf("%s: %s block end marker on line %d precedes its start marker on line %d",
			e.Err, e.Block, e.EndLine, e.StartLine)
	}
	return fmt.Sprintf("%s: %s block marker %q is unbalanced (%d start markers on lines [%s], %d end markers on lines [%s])",
		e.Err, e.Block, e.Unbalanced,
		len(e.StartLines), joinInts(e.StartLines), len(e.EndLines), joinInts(e.EndLines))
}

func (e *MarkerError) Unwrap() error {
	return e.Err
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
