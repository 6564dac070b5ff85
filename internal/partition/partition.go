// Package partition is an in-process extraction engine. It splits a document
// into typed content elements (titles, narrative text, list items, tables)
// shaped like the elements returned by the Unstructured API.
//
// Supported formats:
//   - .txt  plain text, paragraphs split on blank lines
//   - .md   Markdown via goldmark
//   - .html HTML via goquery, boilerplate and hidden nodes skipped
//   - .csv  one table
//   - .docx word/document.xml
//   - .pptx one group of elements per slide
//   - .xlsx one table per sheet
//   - .pdf  page text via pdfcpu
//
// Legacy binary Office formats and RTF are rejected; route those to the
// Unstructured engine instead.
package partition

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phuslu/log"

	"github.com/MalithGihan/extract-service/pkg/types"
)

type Engine struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Engine{logger: logger}
}

// Partition parses the file at path. Elements come back in document order.
func (e *Engine) Partition(ctx context.Context, path string) ([]types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, err
	}
	format := DetectType(path)
	if format == "" {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != "" && ext != ".bin" {
			return nil, fmt.Errorf("local engine cannot partition %s files", ext)
		}
		if format = sniffType(mime); format == "" {
			return nil, fmt.Errorf("local engine cannot partition %s content", mediaType(mime))
		}
	}

	b := &builder{filename: filepath.Base(path), filetype: mediaType(mime)}
	e.logger.Debug().Str("path", path).Str("format", string(format)).Str("filetype", b.filetype).Msg("partitioning")

	switch format {
	case FormatText:
		err = partitionText(path, b)
	case FormatMarkdown:
		err = partitionMarkdown(path, b)
	case FormatHTML:
		err = partitionHTML(path, b)
	case FormatCSV:
		err = partitionCSV(path, b)
	case FormatDocx:
		err = partitionDocx(path, b)
	case FormatPptx:
		err = partitionPptx(ctx, path, b)
	case FormatXlsx:
		err = partitionXlsx(ctx, path, b)
	case FormatPDF:
		err = partitionPDF(ctx, path, b)
	default:
		err = fmt.Errorf("no partitioner for format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.elements, nil
}
