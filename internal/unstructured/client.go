// Package unstructured talks to an Unstructured partition API server.
package unstructured

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MalithGihan/extract-service/internal/validate"
	"github.com/MalithGihan/extract-service/pkg/types"
)

const (
	DefaultURL     = "http://localhost:8000"
	partitionPath  = "/general/v0/general"
	maxErrorBody   = 512
	maxElementBody = 256 << 20
)

type Client struct {
	baseURL    string
	apiKey     string
	strategy   string
	httpClient *http.Client
}

func New(baseURL, apiKey, strategy string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		strategy:   strategy,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Partition uploads the file at path and returns the elements exactly as the
// server emitted them, after checking their shape.
func (c *Client) Partition(ctx context.Context, path string) ([]types.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("buffer upload: %w", err)
	}
	if c.strategy != "" {
		if err := mw.WriteField("strategy", c.strategy); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+partitionPath, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("unstructured-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unstructured api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("unstructured api: %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxElementBody))
	if err != nil {
		return nil, fmt.Errorf("unstructured api: read response: %w", err)
	}
	return validate.Elements(raw)
}
