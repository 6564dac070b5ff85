package partition

import (
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0(?:px|pt|em|rem|%)?\s*[;!]`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0(?:\.0+)?\s*[;!]`),
}

// blockAtoms are elements that break a run of inline content.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Figure: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Li: true, atom.Main: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Ul: true,
}

func partitionHTML(path string, b *builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return err
	}
	body := doc.Find("body")
	htmlChildren(body, b, 0)

	if len(b.elements) == 0 {
		b.add(NarrativeText, visibleText(body), nil)
	}
	return nil
}

func htmlChildren(s *goquery.Selection, b *builder, listDepth int) {
	s.Children().Each(func(_ int, c *goquery.Selection) {
		htmlNode(c, b, listDepth)
	})
}

func htmlNode(s *goquery.Selection, b *builder, listDepth int) {
	n := s.Get(0)
	if skipHTML(n) {
		return
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		b.add(Title, visibleText(s), map[string]any{"category_depth": int(n.Data[1]-'0') - 1})
	case atom.P, atom.Dt, atom.Dd, atom.Address:
		b.add(NarrativeText, visibleText(s), nil)
	case atom.Pre:
		b.add(CodeSnippet, s.Text(), nil)
	case atom.Ul, atom.Ol:
		s.Children().Each(func(_ int, li *goquery.Selection) {
			if li.Get(0).DataAtom != atom.Li {
				htmlNode(li, b, listDepth)
				return
			}
			own := li.Clone()
			own.Find("ul, ol").Remove()
			b.add(ListItem, visibleText(own), map[string]any{"category_depth": listDepth})
			li.ChildrenFiltered("ul, ol").Each(func(_ int, nested *goquery.Selection) {
				htmlNode(nested, b, listDepth+1)
			})
		})
	case atom.Table:
		out, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		var rows [][]string
		s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Children().Each(func(_ int, cell *goquery.Selection) {
				row = append(row, visibleText(cell))
			})
			rows = append(rows, row)
		})
		b.addTable(rows, map[string]any{"text_as_html": sanitizeTable(out)})
	default:
		if hasBlockChild(s) {
			htmlChildren(s, b, listDepth)
			return
		}
		b.add(NarrativeText, visibleText(s), nil)
	}
}

func hasBlockChild(s *goquery.Selection) bool {
	for c := s.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockAtoms[c.DataAtom] {
			return true
		}
	}
	return false
}

func skipHTML(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return true
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Nav, atom.Footer, atom.Head:
		return true
	}
	return hasHiddenStyle(n)
}

func hasHiddenStyle(n *html.Node) bool {
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	style, ok := attr(n, "style")
	if !ok {
		return false
	}
	for _, pat := range hiddenStylePatterns {
		if pat.MatchString(style + ";") {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// visibleText collects text under s, skipping scripts and hidden nodes.
func visibleText(s *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
			if hasHiddenStyle(n) {
				return
			}
			if n.DataAtom == atom.Br {
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return normalizeSpace(sb.String())
}
