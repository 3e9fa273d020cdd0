package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicLink = "https://disk.yandex.ru/i/abcdef"

// diskStub mimics the two-step public download flow: resolve an href,
// then fetch the document body from it.
func diskStub(t *testing.T, body []byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/resolve", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testPublicLink, r.URL.Query().Get("public_key"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"href": srv.URL + "/file.xlsx",
		})
	})
	mux.HandleFunc("/file.xlsx", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestReader(apiBase string) *DiskReader {
	r := NewDiskReader(testPublicLink, "", 5*time.Second, ScanOptions{MaxHeaderRows: 8, DateScanUp: 8})
	r.APIBase = apiBase
	return r
}

func TestDiskReaderRead(t *testing.T) {
	wb, err := io.ReadAll(scheduleWorkbook(t))
	require.NoError(t, err)

	srv := diskStub(t, wb)
	r := newTestReader(srv.URL + "/resolve")

	entries, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "Algorithms\nауд. 101", entries[0].Text)
}

func TestDiskReaderSendsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	r := NewDiskReader(testPublicLink, "secret", 5*time.Second, ScanOptions{MaxHeaderRows: 8, DateScanUp: 8})
	r.APIBase = srv.URL

	_, err := r.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "OAuth secret", gotAuth)
}

func TestDiskReaderResolveFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	r := newTestReader(srv.URL)
	_, err := r.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDiskReaderMissingHref(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	r := newTestReader(srv.URL)
	_, err := r.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDiskReaderUnreachable(t *testing.T) {
	r := newTestReader("http://127.0.0.1:1/resolve")
	_, err := r.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDiskReaderBodyIsNotAWorkbook(t *testing.T) {
	srv := diskStub(t, []byte("<html>not a spreadsheet</html>"))
	r := newTestReader(srv.URL + "/resolve")

	_, err := r.Read(context.Background())
	assert.ErrorIs(t, err, ErrFormatChanged)
}
