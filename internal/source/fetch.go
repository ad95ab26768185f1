package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultURL is the upstream "Academic Stress Level" dataset.
const DefaultURL = "https://raw.githubusercontent.com/Nashalan/Assignment-/refs/heads/main/Academic%20Stress%20Level.csv"

// DefaultTimeout bounds a single fetch when the caller does not configure one.
const DefaultTimeout = 30 * time.Second

// Fetcher retrieves the raw bytes of a dataset.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// HTTPFetcher fetches over HTTP(S) with a hard client timeout. It does not
// retry; the caller decides whether to try again.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPFetcher returns a fetcher whose requests expire after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "stressdash",
	}
}

// NewHTTPFetcherWithClient allows injecting a custom client (used in tests).
func NewHTTPFetcherWithClient(c *http.Client) *HTTPFetcher {
	f := NewHTTPFetcher(0)
	if c != nil {
		f.httpClient = c
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Location: location, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &UnreachableError{
			Location:   location,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(b))),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{Location: location, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// FileFetcher reads a dataset from the local filesystem.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnreachableError{Location: location, Err: err}
	}
	path := strings.TrimPrefix(location, "file://")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &UnreachableError{Location: location, Err: err}
	}
	return b, nil
}

// Auto dispatches on the location: http(s) URLs go to HTTP, anything else is
// treated as a local path.
type Auto struct {
	HTTP *HTTPFetcher
	File FileFetcher
}

// NewFetcher returns an Auto fetcher with the given HTTP timeout.
func NewFetcher(timeout time.Duration) *Auto {
	return &Auto{HTTP: NewHTTPFetcher(timeout)}
}

func (a *Auto) Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, &UnreachableError{Err: errors.New("no source configured")}
	}
	if IsRemote(location) {
		return a.HTTP.Fetch(ctx, location)
	}
	return a.File.Fetch(ctx, location)
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
