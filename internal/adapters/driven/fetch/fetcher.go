// Package fetch retrieves raw document bytes from URLs or local paths.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBytes caps downloads; policy documents past this size are
	// almost certainly the wrong input.
	DefaultMaxBytes = 64 << 20
)

// Config holds configuration for the fetcher.
type Config struct {
	// Timeout is the HTTP request timeout (default: 60s).
	Timeout time.Duration

	// MaxBytes caps the downloaded size (default: 64 MiB).
	MaxBytes int64
}

// Fetcher downloads documents over HTTP(S) or reads them from disk.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch retrieves the document at the given URL or local path. The format
// hint, when non-empty, overrides MIME detection.
func (f *Fetcher) Fetch(ctx context.Context, source string, formatHint string) (*driven.RawDocument, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: empty document source", domain.ErrInvalidInput)
	}

	u, err := url.Parse(source)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return f.fetchURL(ctx, source, formatHint)
	}
	return f.fetchFile(source, formatHint)
}

func (f *Fetcher) fetchURL(ctx context.Context, source, formatHint string) (*driven.RawDocument, error) {
	logger.Debug("fetching %s", source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", domain.ErrDocumentUnreadable, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetching %s: status %d", domain.ErrDocumentUnreadable, source, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrDocumentUnreadable, source, err)
	}
	if int64(len(content)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d byte limit", domain.ErrDocumentUnreadable, source, f.maxBytes)
	}

	mimeType := MIMEFromHint(formatHint)
	if mimeType == "" {
		mimeType = mimeFromHeader(resp.Header.Get("Content-Type"))
	}
	if mimeType == "" {
		mimeType = MIMEFromPath(source)
	}
	if mimeType == "" {
		mimeType = sniff(content)
	}

	return &driven.RawDocument{URI: source, MIMEType: mimeType, Content: content}, nil
}

func (f *Fetcher) fetchFile(path, formatHint string) (*driven.RawDocument, error) {
	logger.Debug("reading %s", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDocumentUnreadable, path, err)
	}
	if info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d byte limit", domain.ErrDocumentUnreadable, path, f.maxBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDocumentUnreadable, path, err)
	}

	mimeType := MIMEFromHint(formatHint)
	if mimeType == "" {
		mimeType = MIMEFromPath(path)
	}
	if mimeType == "" {
		mimeType = sniff(content)
	}

	return &driven.RawDocument{URI: path, MIMEType: mimeType, Content: content}, nil
}

// MIMEFromHint maps a caller format hint to a MIME type. Hints containing
// a slash pass through as full MIME types; unknown hints map to empty.
func MIMEFromHint(hint string) string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "txt", "text":
		return "text/plain"
	default:
		if strings.Contains(hint, "/") {
			return strings.TrimSpace(hint)
		}
		return ""
	}
}

// MIMEFromPath maps known document extensions to MIME types.
func MIMEFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(stripQuery(path))) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".text", ".md":
		return "text/plain"
	default:
		return ""
	}
}

func mimeFromHeader(contentType string) string {
	if contentType == "" {
		return ""
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "application/octet-stream" {
		// Generic; prefer extension or content sniffing.
		return ""
	}
	return contentType
}

// sniff detects common document formats by signature.
func sniff(content []byte) string {
	if len(content) >= 5 && string(content[:5]) == "%PDF-" {
		return "application/pdf"
	}
	if len(content) >= 2 && content[0] == 'P' && content[1] == 'K' {
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	mt := http.DetectContentType(content)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
