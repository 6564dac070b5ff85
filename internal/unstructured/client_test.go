package unstructured

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestPartition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/general/v0/general", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("unstructured-api-key"))

		f, fh, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "report.pdf", fh.Filename)
		assert.Equal(t, "%PDF-1.7", string(b))
		assert.Equal(t, "hi_res", r.FormValue("strategy"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"type":"Title","element_id":"e1","text":"Report","metadata":{"page_number":1}},
			{"type":"Table","element_id":"e2","text":"a b","metadata":{"text_as_html":"<table></table>"}}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret", "hi_res", time.Second)
	els, err := c.Partition(context.Background(), writeFile(t, "report.pdf", "%PDF-1.7"))
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "Title", els[0]["type"])
	assert.Equal(t, "Table", els[1]["type"])
	assert.Equal(t, "<table></table>", els[1]["metadata"].(map[string]any)["text_as_html"])
}

func TestPartitionNoKeyNoStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("unstructured-api-key"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.FormValue("strategy"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	els, err := New(srv.URL, "", "", 0).Partition(context.Background(), writeFile(t, "a.txt", "x"))
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestPartitionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"File type not supported"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", "", time.Second).Partition(context.Background(), writeFile(t, "a.rtf", "{\\rtf1}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "File type not supported")
}

func TestPartitionMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", "", time.Second).Partition(context.Background(), writeFile(t, "a.txt", "x"))
	assert.Error(t, err)
}

func TestPartitionMissingFile(t *testing.T) {
	_, err := New("http://127.0.0.1:1", "", "", time.Second).Partition(context.Background(), "/nonexistent/a.txt")
	assert.Error(t, err)
}

func TestPartitionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, "", "", time.Second).Partition(context.Background(), writeFile(t, "a.txt", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unstructured api")
}
