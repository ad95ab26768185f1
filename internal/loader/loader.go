package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/stressdash/internal/dataset"
	"github.com/KaramelBytes/stressdash/internal/parser"
	"github.com/KaramelBytes/stressdash/internal/source"
)

// Loader fetches and parses one dataset source and memoizes the result for its
// own lifetime. The first successful Load populates the cache; failed loads are
// not cached, so a later call fetches again. Concurrent first calls share a
// single fetch. There is no invalidation.
type Loader struct {
	location string
	fetcher  source.Fetcher
	logger   *zap.Logger

	mu    sync.RWMutex
	table *dataset.Table

	group   singleflight.Group
	fetches atomic.Int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher replaces the default fetcher.
func WithFetcher(f source.Fetcher) Option {
	return func(l *Loader) {
		if f != nil {
			l.fetcher = f
		}
	}
}

// WithTimeout sets the HTTP timeout of the default fetcher.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.fetcher = source.NewFetcher(d) }
}

// WithLogger attaches a logger; nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a Loader for location, an http(s) URL or a local path.
func New(location string, opts ...Option) *Loader {
	l := &Loader{
		location: location,
		fetcher:  source.NewFetcher(source.DefaultTimeout),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Location returns the configured source.
func (l *Loader) Location() string { return l.location }

// Load returns the cached table, fetching and parsing it on first use.
// Errors are *source.UnreachableError or *parser.MalformedError. A shared
// fetch is detached from any one caller's context and bounded by the fetcher
// timeout; a caller whose ctx ends stops waiting with ctx.Err().
func (l *Loader) Load(ctx context.Context) (*dataset.Table, error) {
	if t, ok := l.Cached(); ok {
		return t, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(l.location, func() (any, error) {
		if t, ok := l.Cached(); ok {
			return t, nil
		}
		return l.fetchAndParse(fetchCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.logger.Debug("joined in-flight dataset load", zap.String("source", l.location))
		}
		return res.Val.(*dataset.Table), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) fetchAndParse(ctx context.Context) (*dataset.Table, error) {
	start := time.Now()
	n := l.fetches.Add(1)
	l.logger.Info("fetching dataset", zap.String("source", l.location), zap.Int64("attempt", n))

	data, err := l.fetcher.Fetch(ctx, l.location)
	if err != nil {
		l.logger.Warn("dataset fetch failed", zap.String("source", l.location), zap.Error(err))
		return nil, err
	}
	t, err := parser.Decode(l.location, data)
	if err != nil {
		l.logger.Warn("dataset parse failed", zap.String("source", l.location), zap.Error(err))
		return nil, err
	}

	l.mu.Lock()
	if l.table == nil {
		l.table = t
	} else {
		t = l.table
	}
	l.mu.Unlock()

	l.logger.Info("dataset loaded",
		zap.String("source", l.location),
		zap.String("snapshot", t.ID()),
		zap.Int("rows", t.Rows()),
		zap.Int("columns", t.NumColumns()),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return t, nil
}

// Cached returns the memoized table without fetching.
func (l *Loader) Cached() (*dataset.Table, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.table, l.table != nil
}

// Stats describes the loader's cache state.
type Stats struct {
	Source   string    `json:"source"`
	Fetches  int64     `json:"fetches"`
	Cached   bool      `json:"cached"`
	Snapshot string    `json:"snapshot,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// Stats reports how many fetches were attempted and what is cached.
func (l *Loader) Stats() Stats {
	s := Stats{Source: l.location, Fetches: l.fetches.Load()}
	if t, ok := l.Cached(); ok {
		s.Cached = true
		s.Snapshot = t.ID()
		s.LoadedAt = t.LoadedAt()
	}
	return s
}
