package partition

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

type slideShape struct {
	title bool
	paras []string
}

func partitionPptx(ctx context.Context, path string, b *builder) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if n := numberedEntry(f.Name, "ppt/slides/slide", ".xml"); n > 0 {
			slides = append(slides, slide{n, f})
		}
	}
	if len(slides) == 0 {
		return fmt.Errorf("no slides found in archive")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		shapes, err := readSlide(s.f)
		if err != nil {
			return fmt.Errorf("slide %d: %w", s.n, err)
		}
		meta := map[string]any{"page_number": s.n}
		for _, sh := range shapes {
			if sh.title {
				b.add(Title, strings.Join(sh.paras, " "), meta)
				continue
			}
			for _, p := range sh.paras {
				b.add(NarrativeText, p, meta)
			}
		}
	}
	return nil
}

// readSlide collects the text paragraphs of every p:sp shape on a slide,
// flagging title placeholders.
func readSlide(f *zip.File) ([]slideShape, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		shapes  []slideShape
		cur     slideShape
		para    strings.Builder
		inShape int
		inText  bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsPresentation && t.Name.Local == "sp":
				inShape++
				if inShape == 1 {
					cur = slideShape{}
				}
			case t.Name.Space == nsPresentation && t.Name.Local == "ph":
				if typ := attrValue(t, "type"); typ == "title" || typ == "ctrTitle" {
					cur.title = true
				}
			case t.Name.Space == nsDrawingML && t.Name.Local == "p":
				para.Reset()
			case t.Name.Space == nsDrawingML && t.Name.Local == "t":
				inText = true
			case t.Name.Space == nsDrawingML && t.Name.Local == "br":
				para.WriteByte(' ')
			}
		case xml.CharData:
			if inText && inShape > 0 {
				para.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Space == nsDrawingML && t.Name.Local == "t":
				inText = false
			case t.Name.Space == nsDrawingML && t.Name.Local == "p":
				if text := normalizeSpace(para.String()); text != "" && inShape > 0 {
					cur.paras = append(cur.paras, text)
				}
			case t.Name.Space == nsPresentation && t.Name.Local == "sp":
				inShape--
				if inShape == 0 && len(cur.paras) > 0 {
					shapes = append(shapes, cur)
				}
			}
		}
	}
	return shapes, nil
}
