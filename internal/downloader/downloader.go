// Package downloader fetches frontend log files over HTTP. Bodies are
// returned as UTF-8 text; legacy single-byte content is transcoded so the
// scanner never sees invalid bytes.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sekai-app/bug-analysis-agent/internal/logger"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 30 * time.Second

// maxLogSize caps how much of a response body is read. Frontend log exports
// are a few megabytes at most; anything larger is a misdirected URL.
const maxLogSize = 64 << 20

// Downloader fetches log files from presigned or public URLs.
type Downloader struct {
	client *http.Client
	log    *logger.Logger
}

// New creates a downloader with the given timeout; zero or negative means
// DefaultTimeout.
func New(timeout time.Duration, log *logger.Logger) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.New("downloader", nil)
	}
	return &Downloader{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Download fetches the log at the URL and returns its content as UTF-8 text.
// Bodies that are not valid UTF-8 are reinterpreted as Latin-1, which maps
// every byte and so always yields usable text.
func (d *Downloader) Download(ctx context.Context, logURL string) (string, error) {
	d.log.Info("downloading log from %s", logURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid log URL: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("log download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogSize))
	if err != nil {
		return "", fmt.Errorf("failed to read log body: %w", err)
	}

	content := decodeBody(body)
	d.log.Info("downloaded log: %d characters", len(content))
	return content, nil
}

// decodeBody interprets the body as UTF-8, falling back to Latin-1 when the
// bytes do not decode.
func decodeBody(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}

	var b strings.Builder
	b.Grow(len(body))
	for _, c := range body {
		b.WriteRune(rune(c))
	}
	return b.String()
}

// IsValidLogURL reports whether a URL plausibly points at a log file: an
// http(s) URL whose path looks log-shaped. It is a shallow sanity check, not
// a reachability test.
func IsValidLogURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false
	}

	path := strings.ToLower(parsed.Path)
	return strings.HasSuffix(path, ".log") ||
		strings.Contains(path, "/log") ||
		strings.Contains(path, "logs/") ||
		strings.Contains(path, "log-") ||
		strings.Contains(path, "_log")
}
