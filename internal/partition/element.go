package partition

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/MalithGihan/extract-service/pkg/types"
)

// Element categories, named the way the Unstructured API names them.
const (
	Title         = "Title"
	NarrativeText = "NarrativeText"
	ListItem      = "ListItem"
	Table         = "Table"
	CodeSnippet   = "CodeSnippet"
)

var tablePolicy = bluemonday.UGCPolicy()

type builder struct {
	filename string
	filetype string
	elements []types.Element
}

func (b *builder) add(kind, text string, meta map[string]any) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m := map[string]any{
		"filename": b.filename,
		"filetype": b.filetype,
	}
	for k, v := range meta {
		m[k] = v
	}
	b.elements = append(b.elements, types.Element{
		"type":       kind,
		"element_id": elementID(b.filename, len(b.elements), text),
		"text":       text,
		"metadata":   m,
	})
}

func (b *builder) addTable(rows [][]string, meta map[string]any) {
	var cells []string
	for _, row := range rows {
		for _, c := range row {
			if c = normalizeSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
	}
	if len(cells) == 0 {
		return
	}
	m := map[string]any{"text_as_html": renderTable(rows)}
	for k, v := range meta {
		m[k] = v
	}
	b.add(Table, strings.Join(cells, " "), m)
}

func elementID(filename string, index int, text string) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(index)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func renderTable(rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("<table>")
	for _, row := range rows {
		sb.WriteString("<tr>")
		for _, c := range row {
			sb.WriteString("<td>")
			sb.WriteString(html.EscapeString(normalizeSpace(c)))
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return sanitizeTable(sb.String())
}

func sanitizeTable(s string) string { return tablePolicy.Sanitize(s) }

func normalizeSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// looksLikeTitle is the heuristic used for formats without explicit headings.
func looksLikeTitle(s string) bool {
	if s == "" || strings.ContainsRune(s, '\n') || len([]rune(s)) > 80 {
		return false
	}
	last, _ := lastRune(s)
	if strings.ContainsRune(".!?:;,", last) {
		return false
	}
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func lastRune(s string) (rune, bool) {
	r := []rune(s)
	if len(r) == 0 {
		return 0, false
	}
	return r[len(r)-1], true
}
