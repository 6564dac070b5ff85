package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/MalithGihan/extract-service/internal/ingest"
	"github.com/MalithGihan/extract-service/pkg/types"
)

// formField is the multipart field carrying the uploaded files.
const formField = "files"

// multipart parts above this size spill to disk while the form is parsed.
const formMemory = 32 << 20

const noFilesDetail = "No files provided for extraction."

var ErrNoFiles = errors.New("no files provided for extraction")

// ExtractBatch runs every upload through the pipeline concurrently and
// returns the results in input order. The first failure wins; no partial
// batch is ever returned. All workers finish before it returns, so every
// transient file has been cleaned up by then.
func (h *Handler) ExtractBatch(ctx context.Context, uploads []ingest.Upload) (*types.BatchResult, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	docs := make([]types.ExtractionResult, len(uploads))
	var g errgroup.Group
	for i, up := range uploads {
		i, up := i, up
		g.Go(func() error {
			res, err := h.pipe.Extract(ctx, up)
			if err != nil {
				return err
			}
			docs[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &types.BatchResult{Documents: docs}, nil
}

func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeDetail(w, http.StatusRequestEntityTooLarge,
				"Upload exceeds "+humanize.IBytes(uint64(tooBig.Limit))+".")
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary), errors.Is(err, io.EOF):
			writeDetail(w, http.StatusBadRequest, noFilesDetail)
		default:
			writeDetail(w, http.StatusBadRequest, "Malformed multipart body: "+err.Error())
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[formField]
	uploads := make([]ingest.Upload, len(headers))
	for i, fh := range headers {
		uploads[i] = ingest.FromFileHeader(fh)
	}

	// The batch runs to completion even if the client goes away.
	res, err := h.ExtractBatch(context.WithoutCancel(r.Context()), uploads)
	switch {
	case err == nil:
		h.logger.Info().Int("documents", len(res.Documents)).Msg("batch extracted")
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, ErrNoFiles):
		writeDetail(w, http.StatusBadRequest, noFilesDetail)
	case ingest.IsExtractionError(err):
		h.logger.Info().Err(err).Int("documents", len(uploads)).Msg("batch rejected")
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Int("documents", len(uploads)).Msg("batch failed")
		writeDetail(w, http.StatusInternalServerError, "Unexpected extraction failure: "+err.Error())
	}
}
