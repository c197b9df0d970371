package processor

import (
	"fmt"
	"io"
	"log"
	"strings"

	"easylabwork/internal/parser"
	"easylabwork/internal/types"

	"github.com/fatih/color"
)

// Stats describes what cleaning removed from or rewrote in one document
type Stats struct {
	SolutionLines      int // lines dropped for carrying the solution-line tag
	TemplateTags       int // inline template tags excised
	SolutionBlocks     int
	SolutionBlockLines int // lines dropped with solution blocks, markers included
	TemplateBlocks     int
	TemplateBlockLines int // lines uncommented inside template blocks
}

// Add accumulates other into s
func (s *Stats) Add(other Stats) {
	s.SolutionLines += other.SolutionLines
	s.TemplateTags += other.TemplateTags
	s.SolutionBlocks += other.SolutionBlocks
	s.SolutionBlockLines += other.SolutionBlockLines
	s.TemplateBlocks += other.TemplateBlocks
	s.TemplateBlockLines += other.TemplateBlockLines
}

// Processor turns instructor documents into student templates
type Processor struct {
	markers parser.MarkerSet
	verbose bool
	warnf   func(format string, args ...interface{})
}

// New creates a new Processor instance
func New(markers parser.MarkerSet, verbose bool) *Processor {
	yellow := color.New(color.FgYellow)
	return &Processor{
		markers: markers,
		verbose: verbose,
		warnf: func(format string, args ...interface{}) {
			log.Printf("%s %s", yellow.Sprint("Warning:"), fmt.Sprintf(format, args...))
		},
	}
}

// SetWarnFunc replaces the function used to report non-fatal diagnostics
func (p *Processor) SetWarnFunc(warnf func(format string, args ...interface{})) {
	p.warnf = warnf
}

// Clean runs the whole pipeline on doc: inline tags first, then solution
// blocks, then template blocks. name is only used in diagnostics. On error
// no document is returned.
func (p *Processor) Clean(name string, doc *types.Document) (*types.Document, Stats, error) {
	var stats Stats

	doc, stats.SolutionLines, stats.TemplateTags = p.StripInlineTags(doc)

	doc, spans, err := p.RemoveSolutionBlocks(name, doc)
	if err != nil {
		return nil, Stats{}, err
	}
	stats.SolutionBlocks = len(spans)
	for _, s := range spans {
		stats.SolutionBlockLines += s.Len()
	}

	doc, spans, err = p.TransformTemplateBlocks(name, doc)
	if err != nil {
		return nil, Stats{}, err
	}
	stats.TemplateBlocks = len(spans)
	for _, s := range spans {
		// start and end marker lines are dropped, not uncommented
		stats.TemplateBlockLines += s.Len() - min(s.Len(), 2)
	}

	if p.verbose {
		cyan := color.New(color.FgCyan)
		fmt.Printf("  Cleaned %s: %d solution lines, %d solution blocks, %d template blocks\n",
			cyan.Sprint(name), stats.SolutionLines, stats.SolutionBlocks, stats.TemplateBlocks)
	}

	return doc, stats, nil
}

// StripInlineTags drops every line carrying the solution-line tag and
// excises the first template-line tag from the remaining lines. It returns
// the new document with the number of dropped lines and excised tags.
func (p *Processor) StripInlineTags(doc *types.Document) (*types.Document, int, int) {
	out := &types.Document{Lines: make([]types.Line, 0, doc.Len())}
	dropped, stripped := 0, 0

	for _, line := range doc.Lines {
		if p.markers.SolutionLine.Match(line.Text) {
			dropped++
			continue
		}
		if text, ok := p.markers.TemplateLine.Excise(line.Text); ok {
			line.Text = text
			stripped++
		}
		out.Lines = append(out.Lines, line)
	}

	return out, dropped, stripped
}

// RemoveSolutionBlocks drops every line of every solution block, the
// marker lines included.
func (p *Processor) RemoveSolutionBlocks(name string, doc *types.Document) (*types.Document, []parser.Span, error) {
	spans, err := p.pair(name, doc, p.markers.SolutionBlocks())
	if err != nil {
		return nil, nil, err
	}

	out := &types.Document{Lines: make([]types.Line, 0, doc.Len())}
	sel := parser.NewSelector(spans, doc.Len())
	for _, line := range doc.Lines {
		in, err := sel.Next()
		if err != nil {
			return nil, nil, err
		}
		if !in {
			out.Lines = append(out.Lines, line)
		}
	}

	return out, spans, nil
}

// pending is the one-line buffer of TransformTemplateBlocks. A line inside
// a block can only be emitted once the next line shows it was not the
// block's end marker.
type pending struct {
	line  types.Line
	span  int // ordinal of the enclosing block, -1 outside blocks
	valid bool
}

// TransformTemplateBlocks uncomments template blocks. The start and end
// marker lines are dropped and every line between them loses its first
// comment marker, '#' by default.
func (p *Processor) TransformTemplateBlocks(name string, doc *types.Document) (*types.Document, []parser.Span, error) {
	spans, err := p.pair(name, doc, p.markers.TemplateBlocks())
	if err != nil {
		return nil, nil, err
	}

	out := &types.Document{Lines: make([]types.Line, 0, doc.Len())}
	sel := parser.NewSelector(spans, doc.Len())

	var buf pending
	prevSpan := -1
	for _, line := range doc.Lines {
		in, err := sel.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		span := -1
		if in {
			span = sel.Span()
		}

		// Flush the buffered line unless it closed its block
		if buf.valid && (buf.span == -1 || buf.span == span) {
			out.Lines = append(out.Lines, buf.line)
		}

		switch {
		case !in:
			buf = pending{line: line, span: -1, valid: true}
		case span != prevSpan:
			// start marker line
			buf = pending{}
		default:
			line.Text = strings.Replace(line.Text, p.markers.Comment, "", 1)
			buf = pending{line: line, span: span, valid: true}
		}
		prevSpan = span
	}

	// A buffered line still inside a block is that block's end marker
	if buf.valid && buf.span == -1 {
		out.Lines = append(out.Lines, buf.line)
	}

	return out, spans, nil
}

func (p *Processor) pair(name string, doc *types.Document, kind parser.BlockKind) ([]parser.Span, error) {
	return parser.PairBlocks(doc.Lines, kind, func(prev, next parser.Span) {
		p.warnf("%s: %s blocks at lines %d-%d and %d-%d have no line between them",
			name, kind.Name,
			doc.Lines[prev.Start].Num, doc.Lines[prev.End].Num,
			doc.Lines[next.Start].Num, doc.Lines[next.End].Num)
	})
}
