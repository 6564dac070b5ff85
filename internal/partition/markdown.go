package partition

import (
	"bytes"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

func partitionMarkdown(path string, b *builder) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc := markdown.Parser().Parse(text.NewReader(source))
	return mdBlocks(doc, source, b)
}

func mdBlocks(parent ast.Node, src []byte, b *builder) error {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.Kind() {
		case ast.KindHeading:
			h := n.(*ast.Heading)
			b.add(Title, mdInline(h, src), map[string]any{"category_depth": h.Level - 1})
		case ast.KindParagraph, ast.KindTextBlock:
			b.add(NarrativeText, mdInline(n, src), nil)
		case ast.KindList:
			mdList(n, src, b, 0)
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			b.add(CodeSnippet, mdLines(n, src), nil)
		case ast.KindBlockquote:
			if err := mdBlocks(n, src, b); err != nil {
				return err
			}
		case extast.KindTable:
			if err := mdTable(n, src, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func mdList(list ast.Node, src []byte, b *builder, depth int) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []ast.Node
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Kind() == ast.KindList {
				nested = append(nested, c)
				continue
			}
			parts = append(parts, mdInline(c, src))
		}
		b.add(ListItem, strings.Join(parts, " "), map[string]any{"category_depth": depth})
		for _, l := range nested {
			mdList(l, src, b, depth+1)
		}
	}
}

func mdTable(n ast.Node, src []byte, b *builder) error {
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, mdInline(cell, src))
		}
		rows = append(rows, cells)
	}
	var buf bytes.Buffer
	if err := markdown.Renderer().Render(&buf, src, n); err != nil {
		return err
	}
	var cells []string
	for _, r := range rows {
		for _, c := range r {
			if c != "" {
				cells = append(cells, c)
			}
		}
	}
	b.add(Table, strings.Join(cells, " "), map[string]any{"text_as_html": sanitizeTable(buf.String())})
	return nil
}

// mdInline flattens the inline content under n into normalised text.
func mdInline(n ast.Node, src []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.URL(src))
		}
		return ast.WalkContinue, nil
	})
	return normalizeSpace(sb.String())
}

func mdLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}
