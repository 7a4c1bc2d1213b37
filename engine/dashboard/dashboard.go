// Package dashboard holds the current inspection dataset and serves the
// listing, statistics, history and detail views over it.
//
// A refresh fetches vehicles and inspections in parallel and commits only
// when both succeed; a failure keeps the previous snapshot and is reported
// through Status. Every refresh carries a generation number and starting a
// new one cancels the one in flight, so a late response can never replace
// data loaded for newer parameters.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
	"github.com/WessleyAI/wessley-inspect/engine/query"
	"github.com/WessleyAI/wessley-inspect/engine/source"
	"github.com/WessleyAI/wessley-inspect/pkg/fn"
)

// Fetcher retrieves the two upstream record sets.
type Fetcher interface {
	Vehicles(ctx context.Context, p source.Params) ([]domain.Vehicle, error)
	Inspections(ctx context.Context, p source.Params) ([]domain.Inspection, error)
}

// DefaultCacheSize bounds the memoized listing pages per snapshot.
const DefaultCacheSize = 256

// Options configures a Dashboard.
type Options struct {
	Locale    domain.Locale
	MapsHost  string
	CacheSize int
	Logger    *slog.Logger
	Metrics   *Metrics
	Now       func() time.Time
	OnCommit  func(*Snapshot) // called with the dashboard lock held
}

// Dashboard owns the committed snapshot and the refresh lifecycle.
type Dashboard struct {
	fetcher Fetcher
	opts    Options
	refresh fn.Stage[source.Params, *Snapshot]

	snap  atomic.Pointer[Snapshot]
	cache *queryCache

	mu        sync.Mutex // guards the fields below
	gen       uint64
	version   uint64
	cancel    context.CancelFunc
	inflight  int
	requested source.Params
	lastErr   error
	lastErrAt time.Time
}

// New creates a Dashboard with no data loaded.
func New(f Fetcher, opts Options) *Dashboard {
	if opts.Locale.Location == nil {
		opts.Locale = domain.DefaultLocale
	}
	if opts.MapsHost == "" {
		opts.MapsHost = inspection.DefaultMapsHost
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	d := &Dashboard{fetcher: f, opts: opts, cache: newQueryCache(opts.CacheSize)}
	d.refresh = fn.Then(
		fn.TracedStage("refresh.fetch", fn.Stage[source.Params, dataset](d.fetch)),
		fn.TracedStage("refresh.index", fn.MapStage(func(ds dataset) *Snapshot {
			return buildSnapshot(ds, d.opts.Locale, d.opts.Now())
		})),
	)
	return d
}

// Locale returns the locale used for parsing and formatting dates.
func (d *Dashboard) Locale() domain.Locale { return d.opts.Locale }

// Snapshot returns the committed snapshot, or nil before the first commit.
func (d *Dashboard) Snapshot() *Snapshot { return d.snap.Load() }

func checked(s *Snapshot) (*Snapshot, error) {
	if s == nil {
		return nil, domain.ErrNoData
	}
	return s, nil
}

// Refresh loads the dataset for p and commits it.
//
// On failure the previous snapshot stays current and the error is recorded
// as the last error. A refresh overtaken by a newer one returns an error
// matching domain.ErrStale and commits nothing.
func (d *Dashboard) Refresh(ctx context.Context, p source.Params) (*Snapshot, error) {
	p = p.Normalized()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	gen := d.gen
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.inflight++
	d.requested = p
	d.mu.Unlock()

	defer func() {
		cancel()
		d.mu.Lock()
		d.inflight--
		if d.gen == gen {
			d.cancel = nil
		}
		d.mu.Unlock()
	}()

	snap, err := d.refresh(ctx, p).Unwrap()

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		d.opts.Metrics.stale()
		d.opts.Logger.Info("refresh discarded", "params", p.String(), "generation", gen)
		return nil, fmt.Errorf("refresh %s: %w", p, domain.ErrStale)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("refresh %s: %w", p, err)
		}
		d.lastErr = err
		d.lastErrAt = d.opts.Now()
		d.opts.Metrics.failed()
		d.opts.Logger.Error("refresh failed", "params", p.String(), "err", err)
		return nil, fmt.Errorf("refresh %s: %w", p, err)
	}

	d.version++
	snap.Version = d.version
	d.snap.Store(snap)
	d.cache.reset()
	d.lastErr = nil
	d.lastErrAt = time.Time{}
	d.opts.Metrics.committed(snap)
	if d.opts.OnCommit != nil {
		d.opts.OnCommit(snap)
	}
	d.opts.Logger.Info("dataset committed",
		"params", p.String(),
		"version", snap.Version,
		"vehicles", len(snap.Vehicles),
		"inspections", len(snap.Inspections),
		"took", snap.Took,
	)
	return snap, nil
}

// fetch issues both upstream calls in parallel. Either failure cancels the
// other and fails the pair.
func (d *Dashboard) fetch(ctx context.Context, p source.Params) fn.Result[dataset] {
	ds := dataset{params: p, started: d.opts.Now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := d.fetcher.Vehicles(gctx, p)
		ds.vehicles = v
		return err
	})
	g.Go(func() error {
		in, err := d.fetcher.Inspections(gctx, p)
		ds.inspections = in
		return err
	})
	if err := g.Wait(); err != nil {
		return fn.Err[dataset](err)
	}
	return fn.Ok(ds)
}

// Ensure refreshes when nothing is loaded or the loaded dataset was fetched
// for different parameters, and returns the snapshot to serve.
func (d *Dashboard) Ensure(ctx context.Context, p source.Params) (*Snapshot, error) {
	p = p.Normalized()
	if s := d.snap.Load(); s != nil && s.Params == p {
		return s, nil
	}
	return d.Refresh(ctx, p)
}

// Poll refreshes the current parameters every interval until ctx ends.
// Before the first commit it loads fallback.
func (d *Dashboard) Poll(ctx context.Context, interval time.Duration, fallback source.Params) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		p := fallback
		if s := d.snap.Load(); s != nil {
			p = s.Params
		}
		if _, err := d.Refresh(ctx, p); err != nil && !errors.Is(err, domain.ErrStale) && ctx.Err() == nil {
			d.opts.Logger.Warn("poll refresh failed", "err", err)
		}
	}
}

// --- Views ---

func (d *Dashboard) input(s *Snapshot) query.Input {
	return query.Input{
		Vehicles: s.Vehicles,
		Index:    s.Index,
		Locale:   d.opts.Locale,
		MapsHost: d.opts.MapsHost,
	}
}

// Query returns one listing page of the committed snapshot.
func (d *Dashboard) Query(p query.Params) (query.Result, error) {
	return d.QueryAt(d.snap.Load(), p)
}

// QueryAt returns one listing page of s. Callers holding the snapshot
// returned by Ensure or Refresh pass it here so the page and the parameters
// it was fetched with come from the same dataset. Results are memoized per
// snapshot version and query.
func (d *Dashboard) QueryAt(s *Snapshot, p query.Params) (query.Result, error) {
	s, err := checked(s)
	if err != nil {
		return query.Result{}, err
	}
	if err := p.Validate(); err != nil {
		return query.Result{}, err
	}
	p = p.Normalized()

	key := cacheKey{
		version:  s.Version,
		status:   p.Status,
		search:   domain.Normalize(p.Search),
		page:     p.Page,
		pageSize: p.PageSize,
	}
	if r, ok := d.cache.get(key); ok {
		d.opts.Metrics.cache(true)
		r.Search = p.Search
		return r, nil
	}
	d.opts.Metrics.cache(false)

	r, err := query.Run(d.input(s), p)
	if err != nil {
		return query.Result{}, err
	}
	d.cache.put(key, r)
	return r, nil
}

// Stats returns the fleet counts of the committed snapshot.
func (d *Dashboard) Stats() (inspection.Stats, error) { return d.StatsAt(d.snap.Load()) }

// StatsAt returns the fleet counts of s.
func (d *Dashboard) StatsAt(s *Snapshot) (inspection.Stats, error) {
	s, err := checked(s)
	if err != nil {
		return inspection.Stats{}, err
	}
	return s.Stats, nil
}

// State describes the refresh lifecycle for clients.
type State struct {
	Ready       bool           `json:"ready"`
	Loading     bool           `json:"loading"`
	Params      *source.Params `json:"params,omitempty"`
	Requested   source.Params  `json:"requested"`
	Version     uint64         `json:"version"`
	FetchedAt   *time.Time     `json:"fetchedAt,omitempty"`
	Vehicles    int            `json:"vehicles"`
	Inspections int            `json:"inspections"`
	LastError   string         `json:"lastError,omitempty"`
	LastErrorAt *time.Time     `json:"lastErrorAt,omitempty"`
	Retryable   bool           `json:"retryable,omitempty"`
}

// Status reports the committed dataset, any refresh in flight and the last
// refresh error.
func (d *Dashboard) Status() State {
	d.mu.Lock()
	st := State{
		Loading:   d.inflight > 0,
		Requested: d.requested,
	}
	if d.lastErr != nil {
		at := d.lastErrAt
		st.LastError = d.lastErr.Error()
		st.LastErrorAt = &at
		st.Retryable = domain.IsRetryable(d.lastErr)
	}
	d.mu.Unlock()

	if s := d.snap.Load(); s != nil {
		params, at := s.Params, s.FetchedAt
		st.Ready = true
		st.Params = &params
		st.Version = s.Version
		st.FetchedAt = &at
		st.Vehicles = len(s.Vehicles)
		st.Inspections = len(s.Inspections)
	}
	return st
}

// LastError returns the error of the most recent failed refresh, cleared
// by the next successful one.
func (d *Dashboard) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}
