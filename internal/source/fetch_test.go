package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	b, err := NewHTTPFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(b) != "a,b\n1,2\n" {
		t.Fatalf("body = %q", b)
	}
}

func TestHTTPFetcherStatusIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
	if ue.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", ue.StatusCode)
	}
}

func TestHTTPFetcherTimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTPFetcher(50*time.Millisecond).Fetch(context.Background(), srv.URL)
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable on timeout, got %v", err)
	}
}

func TestHTTPFetcherConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), url)
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(p, []byte("x\n1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := FileFetcher{}.Fetch(context.Background(), "file://"+p)
	if err != nil || string(b) != "x\n1\n" {
		t.Fatalf("fetch = %q, %v", b, err)
	}
	_, err = FileFetcher{}.Fetch(context.Background(), filepath.Join(dir, "missing.csv"))
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable for missing file, got %v", err)
	}
}

func TestAutoDispatch(t *testing.T) {
	if !IsRemote("HTTPS://example.com/x.csv") || IsRemote("/tmp/x.csv") {
		t.Fatalf("IsRemote misclassified")
	}
	_, err := NewFetcher(time.Second).Fetch(context.Background(), "")
	if !IsUnreachable(err) {
		t.Fatalf("empty location should be unreachable, got %v", err)
	}
}
