package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

func TestFetch_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 content"))
	}))
	t.Cleanup(server.Close)

	raw, err := New(Config{}).Fetch(context.Background(), server.URL+"/policy.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", raw.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4 content"), raw.Content)
	assert.Equal(t, server.URL+"/policy.pdf", raw.URI)
}

func TestFetch_URLHintOverridesHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("plain text body"))
	}))
	t.Cleanup(server.Close)

	raw, err := New(Config{}).Fetch(context.Background(), server.URL, "txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", raw.MIMEType)
}

func TestFetch_URLNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	_, err := New(Config{}).Fetch(context.Background(), server.URL, "")
	assert.ErrorIs(t, err, domain.ErrDocumentUnreadable)
}

func TestFetch_SizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	t.Cleanup(server.Close)

	_, err := New(Config{MaxBytes: 1024}).Fetch(context.Background(), server.URL, "")
	assert.ErrorIs(t, err, domain.ErrDocumentUnreadable)
}

func TestFetch_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("The premium is payable annually."), 0o644))

	raw, err := New(Config{}).Fetch(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", raw.MIMEType)
	assert.Equal(t, path, raw.URI)
}

func TestFetch_MissingFile(t *testing.T) {
	_, err := New(Config{}).Fetch(context.Background(), "/does/not/exist.pdf", "")
	assert.ErrorIs(t, err, domain.ErrDocumentUnreadable)
}

func TestFetch_EmptySource(t *testing.T) {
	_, err := New(Config{}).Fetch(context.Background(), "  ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMIMEFromHint(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"pdf", "application/pdf"},
		{"DOCX", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"txt", "text/plain"},
		{"application/json", "application/json"},
		{"mystery", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MIMEFromHint(tt.hint), tt.hint)
	}
}

func TestMIMEFromPath(t *testing.T) {
	assert.Equal(t, "application/pdf", MIMEFromPath("https://example.com/a/policy.pdf?sig=abc"))
	assert.Equal(t, "text/plain", MIMEFromPath("notes.md"))
	assert.Equal(t, "", MIMEFromPath("archive.zip"))
}
