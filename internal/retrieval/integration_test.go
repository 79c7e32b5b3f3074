package retrieval_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/remotefiles/internal/fetcher/colly"
	"github.com/JakeFAU/remotefiles/internal/hash/sha256"
	"github.com/JakeFAU/remotefiles/internal/retrieval"
	"github.com/JakeFAU/remotefiles/internal/storage"
	"github.com/JakeFAU/remotefiles/internal/storage/local"
	"github.com/JakeFAU/remotefiles/internal/token"
)

// newPipeline wires the real fetcher and local store, routing example.com to srv.
func newPipeline(srv *httptest.Server, env token.MapEnv) *retrieval.Orchestrator {
	translate := func(source string) string {
		return strings.Replace(source, "https://example.com", srv.URL, 1)
	}
	return retrieval.New(
		collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second}),
		token.NewResolver(env, zap.NewNop()),
		translate,
		storage.NewRouter(local.New(nil, zap.NewNop()), nil),
		sha256.New(),
		nil,
		nil,
		zap.NewNop(),
	)
}

func TestRunWritesFetchedFile(t *testing.T) {
	t.Chdir(t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	o := newPipeline(srv, token.MapEnv{})
	entries := []retrieval.Entry{{Source: "https://example.com/a.txt", LocalFilePath: "out/a.txt"}}
	require.NoError(t, o.Run(context.Background(), entries))

	info, err := os.Stat("out")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	data, err := os.ReadFile(filepath.Join("out", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestRunNotFoundWritesNothing(t *testing.T) {
	t.Chdir(t.TempDir())

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	o := newPipeline(srv, token.MapEnv{})
	err := o.Run(context.Background(), []retrieval.Entry{
		{Source: "https://example.com/a.txt", LocalFilePath: "out/a.txt"},
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "https://example.com/a.txt")
	assert.Contains(t, msg, srv.URL+"/a.txt")
	assert.Contains(t, msg, "404")
	assert.Contains(t, msg, "Not Found")

	_, statErr := os.Stat("out")
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	body := "line one\nline two\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "deep", "tree", "file.txt")
	o := newPipeline(srv, token.MapEnv{})
	entries := []retrieval.Entry{{Source: "https://example.com/file.txt", LocalFilePath: dest}}

	require.NoError(t, o.Run(context.Background(), entries))
	require.NoError(t, o.Run(context.Background(), entries))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestRunSendsTokenToTranslatedURL(t *testing.T) {
	t.Parallel()

	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		_, _ = w.Write([]byte("private"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "private.txt")
	o := newPipeline(srv, token.MapEnv{"EXAMPLE_COM_TOKEN": "abc"})
	require.NoError(t, o.Run(context.Background(), []retrieval.Entry{
		{Source: "https://example.com/private.txt", LocalFilePath: dest},
	}))
	assert.Equal(t, "token abc", <-auth)
}

func TestRunVerifiesPinnedDigest(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	o := newPipeline(srv, token.MapEnv{})
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, o.Run(context.Background(), []retrieval.Entry{{
		Source:        "https://example.com/a.txt",
		LocalFilePath: good,
		SHA256:        "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
	}}))
	assert.FileExists(t, good)

	bad := filepath.Join(dir, "bad.txt")
	err := o.Run(context.Background(), []retrieval.Entry{{
		Source:        "https://example.com/a.txt",
		LocalFilePath: bad,
		SHA256:        strings.Repeat("0", 64),
	}})
	require.ErrorIs(t, err, sha256.ErrMismatch)
	assert.NoFileExists(t, bad)
}

func TestRunWritesServedBytesUnchanged(t *testing.T) {
	t.Parallel()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	archive := gz.Bytes()
	latin1 := []byte{'c', 'a', 'f', 0xe9}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/archive.tar.gz":
			w.Header().Set("Content-Type", "application/gzip")
			_, _ = w.Write(archive)
		case "/latin1.txt":
			w.Header().Set("Content-Type", "text/plain; charset=iso-8859-1")
			_, _ = w.Write(latin1)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	o := newPipeline(srv, token.MapEnv{})
	require.NoError(t, o.Run(context.Background(), []retrieval.Entry{
		{Source: "https://example.com/archive.tar.gz", LocalFilePath: filepath.Join(dir, "archive.tar.gz")},
		{Source: "https://example.com/latin1.txt", LocalFilePath: filepath.Join(dir, "latin1.txt")},
	}))

	got, err := os.ReadFile(filepath.Join(dir, "archive.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, archive, got)

	got, err = os.ReadFile(filepath.Join(dir, "latin1.txt"))
	require.NoError(t, err)
	assert.Equal(t, latin1, got)
}
