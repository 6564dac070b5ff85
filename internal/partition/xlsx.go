package partition

import (
	"archive/zip"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
)

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRels struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSST struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxSheet struct {
	Rows []struct {
		Cells []struct {
			R  string `xml:"r,attr"`
			T  string `xml:"t,attr"`
			V  string `xml:"v"`
			IS struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// partitionXlsx emits one table per non-empty sheet, in workbook order.
func partitionXlsx(ctx context.Context, file string, b *builder) error {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return err
	}
	defer zr.Close()
	r := &zr.Reader

	var wb xlsxWorkbook
	if err := decodeEntry(r, "xl/workbook.xml", &wb); err != nil {
		return err
	}
	var rels xlsxRels
	if err := decodeEntry(r, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		targets[rel.ID] = rel.Target
	}

	var shared []string
	if zipEntry(r, "xl/sharedStrings.xml") != nil {
		var sst xlsxSST
		if err := decodeEntry(r, "xl/sharedStrings.xml", &sst); err != nil {
			return err
		}
		for _, si := range sst.Items {
			var sb strings.Builder
			sb.WriteString(si.T)
			for _, run := range si.Runs {
				sb.WriteString(run.T)
			}
			shared = append(shared, sb.String())
		}
	}

	for i, sh := range wb.Sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, ok := targets[sh.RID]
		if !ok {
			return fmt.Errorf("sheet %q has no relationship %q", sh.Name, sh.RID)
		}
		var ws xlsxSheet
		if err := decodeEntry(r, sheetPath(target), &ws); err != nil {
			return err
		}

		var rows [][]string
		for _, row := range ws.Rows {
			var cells []string
			for _, c := range row.Cells {
				col, ok := columnIndex(c.R)
				if !ok || col < len(cells) {
					col = len(cells)
				}
				for len(cells) < col {
					cells = append(cells, "")
				}
				cells = append(cells, cellValue(c.T, c.V, c.IS.T, shared))
			}
			rows = append(rows, cells)
		}
		b.addTable(rows, map[string]any{"page_name": sh.Name, "page_number": i + 1})
	}
	return nil
}

func sheetPath(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("xl", target)
}

// columnIndex turns the letters of a cell reference ("C7", "AB12") into a
// zero-based column.
func columnIndex(ref string) (int, bool) {
	n, i := 0, 0
	for ; i < len(ref); i++ {
		c := ref[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			break
		}
		n = n*26 + int(c-'A'+1)
		if n > 1<<14 {
			return 0, false
		}
	}
	if i == 0 {
		return 0, false
	}
	return n - 1, true
}

func cellValue(typ, v, inline string, shared []string) string {
	switch typ {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return inline
	case "b":
		if v == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v
	}
}
