package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/stressdash/internal/parser"
	"github.com/KaramelBytes/stressdash/internal/source"
)

const sample = "Age,Stress Level,Gender\n20,7,F\n21,4,M\n"

// countingFetcher returns scripted responses and counts calls.
type countingFetcher struct {
	calls atomic.Int32
	delay time.Duration
	fail  atomic.Int32 // number of leading calls that fail
	body  string
}

func (f *countingFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if n <= f.fail.Load() {
		return nil, &source.UnreachableError{Location: location, Err: errors.New("boom")}
	}
	return []byte(f.body), nil
}

func TestLoadIsMemoized(t *testing.T) {
	f := &countingFetcher{body: sample}
	l := New("mem.csv", WithFetcher(f))

	first, err := l.Load(context.Background())
	require.NoError(t, err)
	second, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, first.ID(), second.ID())
	assert.EqualValues(t, 1, f.calls.Load())

	st := l.Stats()
	assert.True(t, st.Cached)
	assert.EqualValues(t, 1, st.Fetches)
	assert.Equal(t, first.ID(), st.Snapshot)
}

func TestLoadConcurrentCallersShareOneFetch(t *testing.T) {
	f := &countingFetcher{body: sample, delay: 50 * time.Millisecond}
	l := New("mem.csv", WithFetcher(f))

	const callers = 16
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl, err := l.Load(context.Background())
			errs[i] = err
			if tbl != nil {
				ids[i] = tbl.ID()
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.EqualValues(t, 1, f.calls.Load())
}

// gatedFetcher blocks until release is closed and fails if its own ctx ended.
type gatedFetcher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (f *gatedFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
	}
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(sample), nil
}

func TestLoadCancelledCallerDoesNotFailOthers(t *testing.T) {
	f := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
	l := New("mem.csv", WithFetcher(f))

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx)
		firstErr <- err
	}()
	<-f.started

	second := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background())
		second <- err
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(f.release)
	require.NoError(t, <-second)
	assert.EqualValues(t, 1, f.calls.Load())
	_, ok := l.Cached()
	assert.True(t, ok)
}

func TestLoadFailureIsNotCached(t *testing.T) {
	f := &countingFetcher{body: sample}
	f.fail.Store(1)
	l := New("mem.csv", WithFetcher(f))

	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsUnreachable(err))
	_, ok := l.Cached()
	assert.False(t, ok)

	tbl, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Rows())
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestLoadMalformed(t *testing.T) {
	l := New("bad.csv", WithFetcher(&countingFetcher{body: "a,b\n1\n"}))
	_, err := l.Load(context.Background())
	var me *parser.MalformedError
	require.ErrorAs(t, err, &me)
}

func TestLoadOverHTTPFetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	l := New(srv.URL+"/Academic%20Stress%20Level.csv", WithTimeout(2*time.Second))
	for i := 0; i < 3; i++ {
		tbl, err := l.Load(context.Background())
		require.NoError(t, err)
		assert.True(t, tbl.HasColumn("stress_level"))
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestLoadHTTPErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTimeout(time.Second)).Load(context.Background())
	var ue *source.UnreachableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
}
