package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("line one\n[E] line two\n"))
	}))
	defer server.Close()

	d := New(0, nil)
	content, err := d.Download(context.Background(), server.URL+"/app.log")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "line one\n[E] line two\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestDownloadLatin1Fallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 0xE9 is é in Latin-1 and invalid standalone UTF-8
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9, '\n'})
	}))
	defer server.Close()

	d := New(0, nil)
	content, err := d.Download(context.Background(), server.URL+"/app.log")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(content) {
		t.Fatal("expected valid UTF-8 after transcoding")
	}
	if !strings.HasPrefix(content, "café") {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestDownloadNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	d := New(0, nil)
	if _, err := d.Download(context.Background(), server.URL+"/app.log"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestDownloadCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("slow"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(0, nil)
	if _, err := d.Download(ctx, server.URL+"/app.log"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestIsValidLogURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://bucket.s3.amazonaws.com/exports/app.log", true},
		{"https://cdn.example.com/logs/2024/03/session.txt", true},
		{"http://example.com/user_log_export", true},
		{"https://example.com/log-2024-03-10", true},
		{"https://example.com/profile.jpg", false},
		{"ftp://example.com/app.log", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidLogURL(tt.url); got != tt.want {
			t.Errorf("IsValidLogURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
