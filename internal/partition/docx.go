package partition

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// partitionDocx walks word/document.xml. Heading styles become titles,
// numbered or list-styled paragraphs list items, w:tbl tables.
func partitionDocx(path string, b *builder) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	rc, err := openEntry(&zr.Reader, "word/document.xml")
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		para       strings.Builder
		cell       strings.Builder
		row        []string
		rows       [][]string
		style      string
		numbered   bool
		inText     bool
		tableDepth int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					rows = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
				}
			case "p":
				para.Reset()
				style = ""
				numbered = false
			case "pStyle":
				style = attrValue(t, "val")
			case "numPr":
				numbered = true
			case "t":
				inText = true
			case "tab", "br", "cr":
				para.WriteByte(' ')
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := normalizeSpace(para.String())
				if tableDepth > 0 {
					if cell.Len() > 0 && text != "" {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
					continue
				}
				switch level := docxHeadingLevel(style); {
				case level > 0:
					b.add(Title, text, map[string]any{"category_depth": level - 1})
				case numbered || strings.Contains(strings.ToLower(style), "list"):
					b.add(ListItem, text, nil)
				default:
					b.add(NarrativeText, text, nil)
				}
			case "tc":
				if tableDepth == 1 {
					row = append(row, cell.String())
				}
			case "tr":
				if tableDepth == 1 {
					rows = append(rows, row)
				}
			case "tbl":
				tableDepth--
				if tableDepth == 0 {
					b.addTable(rows, nil)
				}
			}
		}
	}
	return nil
}

// docxHeadingLevel maps a paragraph style id to a heading level, 0 for body.
// "Heading1" → 1, "Title" → 1, "Subtitle" → 2.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := strings.TrimSpace(lower[len(prefix):])
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
