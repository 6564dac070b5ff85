package partition

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatDocx     Format = "docx"
	FormatPptx     Format = "pptx"
	FormatXlsx     Format = "xlsx"
	FormatPDF      Format = "pdf"
)

// DetectType maps a file name to a format, or "" when the extension is not one
// this engine parses.
func DetectType(name string) Format {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt", ".text", ".log":
		return FormatText
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm":
		return FormatHTML
	case ".csv":
		return FormatCSV
	case ".docx":
		return FormatDocx
	case ".pptx":
		return FormatPptx
	case ".xlsx":
		return FormatXlsx
	case ".pdf":
		return FormatPDF
	default:
		return ""
	}
}

// sniffType falls back to content detection for files whose extension says
// nothing, such as the ".bin" name given to uploads without one.
func sniffType(mime *mimetype.MIME) Format {
	for m := mime; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/pdf"):
			return FormatPDF
		case m.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
			return FormatDocx
		case m.Is("application/vnd.openxmlformats-officedocument.presentationml.presentation"):
			return FormatPptx
		case m.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
			return FormatXlsx
		case m.Is("text/html"):
			return FormatHTML
		case m.Is("text/csv"):
			return FormatCSV
		case m.Is("text/plain"):
			return FormatText
		}
	}
	return ""
}

// mediaType strips parameters such as "; charset=utf-8".
func mediaType(mime *mimetype.MIME) string {
	s := mime.String()
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
