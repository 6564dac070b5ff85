package partition

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	nsDrawingML    = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentation = "http://schemas.openxmlformats.org/presentationml/2006/main"
)

func zipEntry(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func openEntry(r *zip.Reader, name string) (io.ReadCloser, error) {
	f := zipEntry(r, name)
	if f == nil {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	return f.Open()
}

func decodeEntry(r *zip.Reader, name string, v any) error {
	rc, err := openEntry(r, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// numberedEntry returns N for names like prefix+N+suffix, or -1.
func numberedEntry(name, prefix, suffix string) int {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return -1
	}
	n, err := strconv.Atoi(name[len(prefix) : len(name)-len(suffix)])
	if err != nil {
		return -1
	}
	return n
}

// attrValue returns the value of the attribute with the given local name.
func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
