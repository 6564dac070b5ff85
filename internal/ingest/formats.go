package ingest

import (
	"path/filepath"
	"sort"
	"strings"
)

// supported is the upload allow-list, checked before anything touches disk.
var supported = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".ppt":  {},
	".pptx": {},
	".xlsx": {},
	".xls":  {},
	".csv":  {},
	".rtf":  {},
	".html": {},
	".txt":  {},
	".md":   {},
}

// SupportedExtensions returns the allow-list, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(supported))
	for ext := range supported {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Suffix returns the lowercase extension of name's last element, or "" when
// it has none. A leading dot (".env") or a trailing one ("README.") does not
// count as an extension.
func Suffix(name string) string {
	base := filepath.Base(name)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i:])
}

// checkExtension accepts a missing suffix; only a present, unknown one fails.
func checkExtension(filename string) error {
	ext := Suffix(filename)
	if ext == "" {
		return nil
	}
	if _, ok := supported[ext]; ok {
		return nil
	}
	return &ExtractionError{
		Kind:     KindUnsupportedFormat,
		Filename: filename,
		msg:      "Unsupported file type '" + ext + "' for '" + filename + "'.",
	}
}
