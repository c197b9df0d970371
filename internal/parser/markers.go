package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Marker is the set of literal spellings of one marker role. A line carries
// the marker if any literal occurs in it; the first literal is canonical.
type Marker []string

// Match reports whether line contains the marker
func (m Marker) Match(line string) bool {
	for _, lit := range m {
		if strings.Contains(line, lit) {
			return true
		}
	}
	return false
}

// Excise removes the first occurrence of the first literal found in line.
// It returns the line unchanged and false if no literal occurs.
func (m Marker) Excise(line string) (string, bool) {
	for _, lit := range m {
		if idx := strings.Index(line, lit); idx != -1 {
			return line[:idx] + line[idx+len(lit):], true
		}
	}
	return line, false
}

func (m Marker) String() string {
	if len(m) == 0 {
		return ""
	}
	return m[0]
}

// MarkerSet holds the literals for every marker role
type MarkerSet struct {
	SolutionLine       Marker `yaml:"solution_line"`
	TemplateLine       Marker `yaml:"template_line"`
	SolutionBlockStart Marker `yaml:"solution_block_start"`
	SolutionBlockEnd   Marker `yaml:"solution_block_end"`
	TemplateBlockStart Marker `yaml:"template_block_start"`
	TemplateBlockEnd   Marker `yaml:"template_block_end"`

	// Comment is removed once from each line inside a template block
	Comment string `yaml:"comment"`
}

// DefaultMarkers returns the standard markers. The compact spellings without
// a space after '#' are accepted as aliases, and so is a template-line tag
// at the end of a line with no space after it.
func DefaultMarkers() MarkerSet {
	return MarkerSet{
		SolutionLine:       Marker{"@SOL@"},
		TemplateLine:       Marker{"# @TEMPL@ ", "#@TEMPL@", "# @TEMPL@"},
		SolutionBlockStart: Marker{"# @SOL", "#@SOL"},
		SolutionBlockEnd:   Marker{"# SOL@", "#SOL@"},
		TemplateBlockStart: Marker{"# @TEMPL", "#@TEMPL"},
		TemplateBlockEnd:   Marker{"# TEMPL@", "#TEMPL@"},
		Comment:            "#",
	}
}

// Merge returns s with every empty role filled in from defaults
func (s MarkerSet) Merge(defaults MarkerSet) MarkerSet {
	pick := func(m, d Marker) Marker {
		if len(m) == 0 {
			return d
		}
		return m
	}
	comment := s.Comment
	if comment == "" {
		comment = defaults.Comment
	}
	return MarkerSet{
		SolutionLine:       pick(s.SolutionLine, defaults.SolutionLine),
		TemplateLine:       pick(s.TemplateLine, defaults.TemplateLine),
		SolutionBlockStart: pick(s.SolutionBlockStart, defaults.SolutionBlockStart),
		SolutionBlockEnd:   pick(s.SolutionBlockEnd, defaults.SolutionBlockEnd),
		TemplateBlockStart: pick(s.TemplateBlockStart, defaults.TemplateBlockStart),
		TemplateBlockEnd:   pick(s.TemplateBlockEnd, defaults.TemplateBlockEnd),
		Comment:            comment,
	}
}

// Validate checks that every role has at least one non-empty literal
func (s MarkerSet) Validate() error {
	roles := []struct {
		name string
		m    Marker
	}{
		{"solution_line", s.SolutionLine},
		{"template_line", s.TemplateLine},
		{"solution_block_start", s.SolutionBlockStart},
		{"solution_block_end", s.SolutionBlockEnd},
		{"template_block_start", s.TemplateBlockStart},
		{"template_block_end", s.TemplateBlockEnd},
	}
	for _, r := range roles {
		if len(r.m) == 0 {
			return fmt.Errorf("marker %s has no literal", r.name)
		}
		for _, lit := range r.m {
			if lit == "" {
				return fmt.Errorf("marker %s has an empty literal", r.name)
			}
		}
	}
	if s.Comment == "" {
		return fmt.Errorf("comment marker is empty")
	}
	return nil
}

// BlockKind names one kind of block and its delimiting markers
type BlockKind struct {
	Name  string
	Start Marker
	End   Marker
}

// SolutionBlocks returns the block kind for instructor-only code
func (s MarkerSet) SolutionBlocks() BlockKind {
	return BlockKind{Name: "solution", Start: s.SolutionBlockStart, End: s.SolutionBlockEnd}
}

// TemplateBlocks returns the block kind for commented-out skeleton code
func (s MarkerSet) TemplateBlocks() BlockKind {
	return BlockKind{Name: "template", Start: s.TemplateBlockStart, End: s.TemplateBlockEnd}
}

// UnmarshalYAML accepts either a single literal or a list of literals
func (m *Marker) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var lit string
		if err := node.Decode(&lit); err != nil {
			return err
		}
		*m = Marker{lit}
		return nil
	case yaml.SequenceNode:
		var lits []string
		if err := node.Decode(&lits); err != nil {
			return err
		}
		*m = Marker(lits)
		return nil
	}
	return fmt.Errorf("line %d: marker must be a string or a list of strings", node.Line)
}
