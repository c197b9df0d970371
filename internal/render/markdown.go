package render

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown renders lab hand-outs to standalone HTML pages
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a renderer with GitHub flavoured extensions
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			extension.DefinitionList,
			emoji.Emoji,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)
	return &Markdown{md: md}
}

// Render converts Markdown source into a complete HTML page titled title
func (m *Markdown) Render(title string, source []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := m.md.Convert(source, &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\" />\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", stdhtml.EscapeString(title))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// HTMLPath returns the path of the page rendered for the Markdown file at path
func HTMLPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
}
