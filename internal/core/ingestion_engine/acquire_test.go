package ingestion_engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidolu-dev/shoplore/internal/core"
)

func TestFetchFileContent_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.txt")
	require.NoError(t, os.WriteFile(path, []byte("local content"), 0o600))

	data, err := FetchFileContent(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("local content"), data)
}

func TestFetchFileContent_LocalMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.txt")

	_, err := FetchFileContent(context.Background(), path)
	require.Error(t, err)

	var acq *core.AcquisitionError
	require.ErrorAs(t, err, &acq)
	assert.False(t, acq.Remote)
	assert.Equal(t, path, acq.Locator)
}

func TestFetchFileContent_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote content"))
	}))
	defer srv.Close()

	data, err := FetchFileContent(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("remote content"), data)
}

func TestFetchFileContent_RemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchFileContent(context.Background(), srv.URL)
	require.Error(t, err)

	var acq *core.AcquisitionError
	require.ErrorAs(t, err, &acq)
	assert.True(t, acq.Remote)
	assert.Contains(t, acq.Error(), "404")
}
