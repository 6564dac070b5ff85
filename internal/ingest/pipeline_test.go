package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MalithGihan/extract-service/internal/store"
	"github.com/MalithGihan/extract-service/pkg/types"
)

type fakeEngine struct {
	mu    sync.Mutex
	paths []string
	fn    func(path string) ([]types.Element, error)
}

func (f *fakeEngine) Partition(_ context.Context, path string) ([]types.Element, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []types.Element{{"type": "NarrativeText", "text": string(b)}}, nil
}

func quiet() *log.Logger {
	return &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}
}

func newPipeline(t *testing.T, eng Engine, opts ...Option) (*Pipeline, *store.FS) {
	t.Helper()
	st, err := store.New(t.TempDir(), quiet())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(eng, st, append([]Option{WithLogger(quiet())}, opts...)...), st
}

func leftovers(t *testing.T, st *store.FS) []string {
	t.Helper()
	entries, err := os.ReadDir(st.Root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var ee *ExtractionError
	require.True(t, errors.As(err, &ee), "want *ExtractionError, got %T: %v", err, err)
	return ee.Kind
}

func TestUnsupportedExtension(t *testing.T) {
	for _, name := range []string{"notes.xyz", "archive.ZIP", "image.png", "a.b.exe"} {
		t.Run(name, func(t *testing.T) {
			eng := &fakeEngine{}
			p, st := newPipeline(t, eng)

			_, err := p.Extract(context.Background(), FromBytes(name, []byte("data")))
			require.Error(t, err)
			assert.Equal(t, KindUnsupportedFormat, kindOf(t, err))
			assert.Contains(t, err.Error(), name)
			assert.Empty(t, eng.paths, "engine must not run")
			assert.Empty(t, leftovers(t, st), "no transient file may be created")
		})
	}
}

func TestUnsupportedCheckedBeforeRead(t *testing.T) {
	opened := false
	up := Upload{Filename: "notes.xyz", Open: func() (io.ReadCloser, error) {
		opened = true
		return io.NopCloser(nil), nil
	}}
	p, _ := newPipeline(t, &fakeEngine{})

	_, err := p.Extract(context.Background(), up)
	assert.Equal(t, KindUnsupportedFormat, kindOf(t, err))
	assert.False(t, opened)
}

func TestEmptyPayload(t *testing.T) {
	for _, name := range []string{"report.pdf", "README", ""} {
		t.Run(name, func(t *testing.T) {
			eng := &fakeEngine{}
			p, st := newPipeline(t, eng)

			_, err := p.Extract(context.Background(), FromBytes(name, nil))
			require.Error(t, err)
			assert.Equal(t, KindEmptyPayload, kindOf(t, err))
			assert.Contains(t, err.Error(), "empty")
			assert.Empty(t, eng.paths)
			assert.Empty(t, leftovers(t, st))
		})
	}
}

func TestSuccessCleansUp(t *testing.T) {
	var seenDuringCall bool
	eng := &fakeEngine{}
	eng.fn = func(path string) ([]types.Element, error) {
		_, err := os.Stat(path)
		seenDuringCall = err == nil
		return []types.Element{{"type": "Title", "text": "Q3"}, {"type": "NarrativeText", "text": "body"}}, nil
	}
	p, st := newPipeline(t, eng)

	res, err := p.Extract(context.Background(), FromBytes("Report.PDF", []byte("%PDF")))
	require.NoError(t, err)
	assert.True(t, seenDuringCall)
	assert.Equal(t, "Report.PDF", res.Filename)
	require.Len(t, res.Elements, 2)
	assert.Equal(t, "Title", res.Elements[0]["type"])

	require.Len(t, eng.paths, 1)
	assert.Equal(t, ".pdf", filepath.Ext(eng.paths[0]))
	_, err = os.Stat(eng.paths[0])
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, leftovers(t, st))
}

func TestMissingExtensionUsesFallback(t *testing.T) {
	for _, name := range []string{"Makefile", ".env", ".gitignore", "README."} {
		t.Run(name, func(t *testing.T) {
			eng := &fakeEngine{}
			p, _ := newPipeline(t, eng)

			res, err := p.Extract(context.Background(), FromBytes(name, []byte("all:")))
			require.NoError(t, err)
			assert.Equal(t, name, res.Filename)
			assert.Equal(t, "all:", res.Elements[0]["text"])
			require.Len(t, eng.paths, 1)
			assert.Equal(t, ".bin", filepath.Ext(eng.paths[0]))
		})
	}
}

func TestNilElementsBecomeEmpty(t *testing.T) {
	eng := &fakeEngine{fn: func(string) ([]types.Element, error) { return nil, nil }}
	p, _ := newPipeline(t, eng)

	res, err := p.Extract(context.Background(), FromBytes("a.txt", []byte("x")))
	require.NoError(t, err)
	assert.NotNil(t, res.Elements)
	assert.Empty(t, res.Elements)
}

func TestEngineFailureWrapsCause(t *testing.T) {
	cause := errors.New("corrupt xref table")
	eng := &fakeEngine{fn: func(string) ([]types.Element, error) { return nil, cause }}
	p, st := newPipeline(t, eng)

	_, err := p.Extract(context.Background(), FromBytes("broken.pdf", []byte("junk")))
	require.Error(t, err)
	assert.Equal(t, KindEngineFailure, kindOf(t, err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to extract 'broken.pdf': corrupt xref table", err.Error())
	assert.Empty(t, leftovers(t, st))
}

func TestEnginePanicIsEngineFailure(t *testing.T) {
	eng := &fakeEngine{fn: func(string) ([]types.Element, error) { panic("boom") }}
	p, st := newPipeline(t, eng)

	_, err := p.Extract(context.Background(), FromBytes("a.docx", []byte("x")))
	require.Error(t, err)
	assert.Equal(t, KindEngineFailure, kindOf(t, err))
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, leftovers(t, st))
}

func TestCleanupFailureDoesNotMaskError(t *testing.T) {
	cause := errors.New("engine gave up")
	eng := &fakeEngine{fn: func(path string) ([]types.Element, error) {
		// Pull the file out from under the pipeline so its own removal misses.
		require.NoError(t, os.Remove(path))
		return nil, cause
	}}
	p, _ := newPipeline(t, eng)

	_, err := p.Extract(context.Background(), FromBytes("a.md", []byte("# hi")))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindEngineFailure, kindOf(t, err))
}

func TestOpenFailureIsUnclassified(t *testing.T) {
	up := Upload{Filename: "a.txt", Open: func() (io.ReadCloser, error) { return nil, errors.New("disk gone") }}
	eng := &fakeEngine{}
	p, st := newPipeline(t, eng)

	_, err := p.Extract(context.Background(), up)
	require.Error(t, err)
	assert.False(t, IsExtractionError(err))
	assert.Contains(t, err.Error(), "disk gone")
	assert.Empty(t, eng.paths)
	assert.Empty(t, leftovers(t, st))
}

func TestUploadWithoutSource(t *testing.T) {
	p, _ := newPipeline(t, &fakeEngine{})

	var err error
	assert.NotPanics(t, func() {
		_, err = p.Extract(context.Background(), Upload{Filename: "a.txt"})
	})
	require.ErrorIs(t, err, errUnreadable)
	assert.False(t, IsExtractionError(err))
}

func TestWorkerPoolBoundsEngineCalls(t *testing.T) {
	var running, peak int32
	eng := &fakeEngine{fn: func(string) ([]types.Element, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	}}
	p, _ := newPipeline(t, eng, WithWorkers(2))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Extract(context.Background(), FromBytes("a.txt", []byte("x")))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestSupportedExtensionsSorted(t *testing.T) {
	exts := SupportedExtensions()
	assert.Equal(t, []string{
		".csv", ".doc", ".docx", ".html", ".md", ".pdf",
		".ppt", ".pptx", ".rtf", ".txt", ".xls", ".xlsx",
	}, exts)
}

func TestSuffix(t *testing.T) {
	tests := []struct{ name, want string }{
		{"report.PDF", ".pdf"},
		{"a.tar.gz", ".gz"},
		{"noext", ""},
		{"", ""},
		{"dir.d/file", ""},
		{".env", ""},
		{".gitignore", ""},
		{"README.", ""},
		{"config/.env.local", ".local"},
		{"..", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Suffix(tt.name), tt.name)
	}
}
