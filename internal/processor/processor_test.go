package processor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"easylabwork/internal/parser"
	"easylabwork/internal/types"

	"github.com/google/go-cmp/cmp"
)

func newTestProcessor(t *testing.T) (*Processor, *[]string) {
	t.Helper()
	p := New(parser.DefaultMarkers(), false)
	var warnings []string
	p.SetWarnFunc(func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	return p, &warnings
}

func clean(t *testing.T, p *Processor, input string) string {
	t.Helper()
	doc, _, err := p.Clean("test.py", types.ParseDocument(input))
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	return doc.String()
}

func TestCleanInlineTags(t *testing.T) {
	p, _ := newTestProcessor(t)

	input := `def myfunction(value: float):
    # Square the value
    #@TEMPL@sq_value = None
    sq_value = value**2  @SOL@

    return sq_value
`
	want := `def myfunction(value: float):
    # Square the value
    sq_value = None

    return sq_value
`
	if diff := cmp.Diff(want, clean(t, p, input)); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}
}

func TestCleanTrailingTemplateTag(t *testing.T) {
	p, _ := newTestProcessor(t)

	// a tag closing the line has no space after it and must not be taken
	// for a template block start
	input := "x = 1  @SOL@\nx = None # @TEMPL@\nprint(x)\n"
	if diff := cmp.Diff("x = None \nprint(x)\n", clean(t, p, input)); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}
}

func TestCleanTemplateBlock(t *testing.T) {
	p, _ := newTestProcessor(t)

	input := `while value != 1:
    # @TEMPL
    #if None:
    #    value = None
    #else:
    #    value = None
    # TEMPL@
    print(value)
`
	want := `while value != 1:
    if None:
        value = None
    else:
        value = None
    print(value)
`
	if diff := cmp.Diff(want, clean(t, p, input)); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}
}

func TestCleanSolutionBlock(t *testing.T) {
	p, _ := newTestProcessor(t)

	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("line %d\n", i))
	}
	lines[10] = "# @SOL\n"
	lines[14] = "# SOL@\n"
	input := strings.Join(lines, "")

	doc, stats, err := p.Clean("test.py", types.ParseDocument(input))
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if doc.Len() != 15 {
		t.Errorf("want 15 lines, got %d", doc.Len())
	}
	for _, l := range doc.Lines {
		if l.Num >= 11 && l.Num <= 15 {
			t.Errorf("line %d of the solution block survived: %q", l.Num, l.Text)
		}
	}
	if stats.SolutionBlocks != 1 || stats.SolutionBlockLines != 5 {
		t.Errorf("want 1 block of 5 lines, got %+v", stats)
	}
}

func TestCleanCompactMarkers(t *testing.T) {
	p, _ := newTestProcessor(t)

	input := `    while(value != 1):
        #@TEMPL
        #if None:
        #    value = None
        #else:
        #    value = None
        #TEMPL@
        #@SOL
        if value % 2 == 0:
            value = value // 2
        else:
            value = 3 * value + 1
        #SOL@
        sys.stdout.write(f"{value} ")
`
	want := `    while(value != 1):
        if None:
            value = None
        else:
            value = None
        sys.stdout.write(f"{value} ")
`
	if diff := cmp.Diff(want, clean(t, p, input)); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}
}

func TestCleanWithoutMarkers(t *testing.T) {
	p, _ := newTestProcessor(t)

	inputs := []string{
		"",
		"x = 1\n",
		"# a comment\n# another\nprint('#')\n",
		"no trailing newline",
		"windows\r\nline endings\r\n",
	}
	for _, input := range inputs {
		if got := clean(t, p, input); got != input {
			t.Errorf("Clean(%q) = %q, want it unchanged", input, got)
		}
	}
}

func TestCleanIdempotent(t *testing.T) {
	p, _ := newTestProcessor(t)

	input := `a = 1  @SOL@
# @TEMPL@ a = None
# @SOL
b = 2
# SOL@
# @TEMPL
#b = None
# TEMPL@
`
	once := clean(t, p, input)
	if want := "a = None\nb = None\n"; once != want {
		t.Fatalf("first pass = %q, want %q", once, want)
	}
	if twice := clean(t, p, once); twice != once {
		t.Errorf("second pass = %q, want %q", twice, once)
	}
}

func TestCleanLineCount(t *testing.T) {
	p, _ := newTestProcessor(t)

	input := `keep 1
drop  @SOL@
# @SOL
solution
solution
# SOL@
keep 2
also drop #@SOL@
# @SOL
# SOL@
keep 3
`
	in := types.ParseDocument(input)
	out, stats, err := p.Clean("test.py", in)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	// 11 lines, minus 2 tagged lines, minus blocks of 4 and 2 lines
	if want := in.Len() - 2 - (4 + 2); out.Len() != want {
		t.Errorf("want %d lines, got %d", want, out.Len())
	}
	if want := "keep 1\nkeep 2\nkeep 3\n"; out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
	want := Stats{SolutionLines: 2, SolutionBlocks: 2, SolutionBlockLines: 6}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats (-want, +got)\n%s", diff)
	}
}

func TestCleanStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"two solution starts", "# @SOL\n# @SOL\nx\n# SOL@\n", parser.ErrMismatchedMarkers},
		{"solution end only", "x\n# SOL@\n", parser.ErrMismatchedMarkers},
		{"two template starts", "# @TEMPL\n# @TEMPL\n#x\n# TEMPL@\n", parser.ErrMismatchedMarkers},
		{"inverted solution", "# SOL@\nx\n# @SOL\n", parser.ErrInvertedBlock},
		{"inverted template", "# TEMPL@\n#x\n# @TEMPL\n", parser.ErrInvertedBlock},
	}

	p, _ := newTestProcessor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _, err := p.Clean("test.py", types.ParseDocument(tt.input))
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if doc != nil {
				t.Errorf("want no output, got %q", doc.String())
			}
		})
	}
}

func TestCleanErrorCitesSourceLines(t *testing.T) {
	p, _ := newTestProcessor(t)

	// the tagged lines are gone before blocks are paired
	input := "a  @SOL@\nb  @SOL@\n# @TEMPL\n#x\n"
	_, _, err := p.Clean("test.py", types.ParseDocument(input))
	var merr *parser.MarkerError
	if !errors.As(err, &merr) {
		t.Fatalf("want *parser.MarkerError, got %v", err)
	}
	if merr.Block != "template" {
		t.Errorf("want template block, got %q", merr.Block)
	}
	if diff := cmp.Diff([]int{3}, merr.StartLines); diff != "" {
		t.Errorf("start lines (-want, +got)\n%s", diff)
	}
}

func TestTransformAdjacentTemplateBlocks(t *testing.T) {
	p, warnings := newTestProcessor(t)

	input := `a
# @TEMPL
#x
# TEMPL@
# @TEMPL
#y
# TEMPL@
b
`
	if diff := cmp.Diff("a\nx\ny\nb\n", clean(t, p, input)); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}
	want := []string{"test.py: template blocks at lines 2-4 and 5-7 have no line between them"}
	if diff := cmp.Diff(want, *warnings); diff != "" {
		t.Errorf("warnings (-want, +got)\n%s", diff)
	}
}

func TestTransformTemplateBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"block at end of file",
			"a\n# @TEMPL\n#x\n# TEMPL@\n",
			"a\nx\n",
		},
		{
			"block at start of file",
			"# @TEMPL\n#x\n# TEMPL@\nb\n",
			"x\nb\n",
		},
		{
			"empty block",
			"a\n# @TEMPL\n# TEMPL@\nb\n",
			"a\nb\n",
		},
		{
			"only the first hash is removed",
			"# @TEMPL\n#x = 1  # comment\n##y\n# TEMPL@\n",
			"x = 1  # comment\n#y\n",
		},
		{
			"lines without a hash pass through",
			"# @TEMPL\n    pass\n# TEMPL@\n",
			"    pass\n",
		},
		{
			"two blocks",
			"# @TEMPL\n#a\n# TEMPL@\nkeep\n# @TEMPL\n#b\n# TEMPL@\n",
			"a\nkeep\nb\n",
		},
	}

	p, _ := newTestProcessor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _, err := p.TransformTemplateBlocks("test.py", types.ParseDocument(tt.input))
			if err != nil {
				t.Fatalf("TransformTemplateBlocks: %v", err)
			}
			if diff := cmp.Diff(tt.want, doc.String()); diff != "" {
				t.Errorf("(-want, +got)\n%s", diff)
			}
		})
	}
}

func TestCustomMarkers(t *testing.T) {
	markers := parser.MarkerSet{
		SolutionLine:       parser.Marker{"@ANSWER@"},
		TemplateLine:       parser.Marker{"// @TEMPL@ "},
		SolutionBlockStart: parser.Marker{"// @SOL"},
		SolutionBlockEnd:   parser.Marker{"// SOL@"},
		TemplateBlockStart: parser.Marker{"// @TEMPL"},
		TemplateBlockEnd:   parser.Marker{"// TEMPL@"},
		Comment:            "//",
	}
	p := New(markers, false)

	input := "x := 1 // @ANSWER@\n// @TEMPL@ x := 0\n// @SOL\ny := 2\n// SOL@\n// @TEMPL\n//return x // done\n// TEMPL@\n"
	doc, _, err := p.Clean("lab.go", types.ParseDocument(input))
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if want := "x := 0\nreturn x // done\n"; doc.String() != want {
		t.Errorf("got %q, want %q", doc.String(), want)
	}
}
