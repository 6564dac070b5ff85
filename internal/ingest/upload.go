package ingest

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
)

// Upload is one document handed to the pipeline: a client-supplied name
// (possibly empty) and a way to open its bytes.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func FromBytes(filename string, payload []byte) Upload {
	return Upload{
		Filename: filename,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		},
	}
}

var errUnreadable = errors.New("upload has no payload source")

// read buffers the whole payload and closes the source.
func (u Upload) read() ([]byte, error) {
	if u.Open == nil {
		return nil, errUnreadable
	}
	rc, err := u.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
