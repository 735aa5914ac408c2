package debug

import (
	"cmp"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/baxromumarov/lifebound"
)

// ErrInvalidConfig is wrapped by configuration errors.
var ErrInvalidConfig = errors.New("debug: invalid config")

// Meta labels a tracked stream.
type Meta struct {
	Name     string
	Owner    string
	Operator string
}

// Info is the debug record of one tracked subscription.
type Info struct {
	ID             string        `json:"id" yaml:"id"`
	Name           string        `json:"name,omitempty" yaml:"name,omitempty"`
	Owner          string        `json:"owner,omitempty" yaml:"owner,omitempty"`
	Operator       string        `json:"operator,omitempty" yaml:"operator,omitempty"`
	CreatedAt      time.Time     `json:"created_at" yaml:"created_at"`
	Active         bool          `json:"active" yaml:"active"`
	Emissions      int64         `json:"emissions" yaml:"emissions"`
	Errors         int64         `json:"errors" yaml:"errors"`
	LastEmissionAt *time.Time    `json:"last_emission_at,omitempty" yaml:"last_emission_at,omitempty"`
	LastErrorAt    *time.Time    `json:"last_error_at,omitempty" yaml:"last_error_at,omitempty"`
	EndedAt        *time.Time    `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

type record struct {
	seq   uint64
	info  Info
	purge func() bool
}

// Option configures a [Registry].
type Option func(*Registry)

// WithClock sets the clock used for timestamps, retention and leak checks.
func WithClock(c lifebound.Clock) Option {
	if c == nil {
		panic("debug: WithClock requires non-nil clock")
	}
	return func(r *Registry) {
		r.clock = c
	}
}

// WithLeakCallback sets the function called by the periodic leak check
// with the records currently suspected of leaking. The default logs a
// warning through slog.
func WithLeakCallback(fn func([]Info)) Option {
	if fn == nil {
		panic("debug: WithLeakCallback requires non-nil callback")
	}
	return func(r *Registry) {
		r.onLeak = fn
	}
}

// Registry records every subscription of the streams passed to [Track].
// It is an explicitly constructed object; create one per owner, session or
// test.
type Registry struct {
	cfg     Config
	clock   lifebound.Clock
	onLeak  func([]Info)
	enabled atomic.Bool

	mu        sync.Mutex
	seq       uint64
	records   map[string]*record
	closed    bool
	stopCheck func() bool
}

// New creates a registry. It panics if cfg holds negative durations.
func New(cfg Config, opts ...Option) *Registry {
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	r := &Registry{
		cfg:     cfg,
		clock:   lifebound.SystemClock,
		onLeak:  logLeaks,
		records: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.enabled.Store(cfg.Enabled)

	if cfg.LeakCheckInterval > 0 {
		r.mu.Lock()
		r.stopCheck = r.clock.AfterFunc(cfg.LeakCheckInterval, r.checkLeaks)
		r.mu.Unlock()
	}
	return r
}

func logLeaks(leaks []Info) {
	for _, in := range leaks {
		slog.Warn("debug: subscription may be leaking",
			slog.String("id", in.ID),
			slog.String("name", in.Name),
			slog.String("owner", in.Owner),
			slog.Time("created_at", in.CreatedAt),
			slog.Int64("emissions", in.Emissions),
		)
	}
}

// Enabled reports whether [Track] currently wraps streams.
func (r *Registry) Enabled() bool {
	return r != nil && r.enabled.Load()
}

// SetEnabled turns tracking on or off for streams passed to [Track] from
// now on. Streams already tracked stay tracked.
func (r *Registry) SetEnabled(on bool) {
	r.enabled.Store(on)
}

// Track records every subscription to src in r. Values, errors and
// completion pass through unchanged and with unchanged timing; counters are
// updated synchronously just before each event is forwarded.
//
// If r is nil or disabled, Track returns src itself.
func Track[T any](r *Registry, src *lifebound.Stream[T], meta Meta) *lifebound.Stream[T] {
	if !r.Enabled() {
		return src
	}
	return lifebound.NewStream(func(e lifebound.Emitter[T]) func() {
		rec := r.open(meta)
		sub := src.Subscribe(lifebound.Observer[T]{
			Next: func(v T) {
				r.emission(rec)
				e.Next(v)
			},
			Error: func(err error) {
				r.failure(rec)
				e.Error(err)
			},
			Complete: e.Complete,
		})
		return func() {
			sub.Close()
			r.finish(rec)
		}
	})
}

func (r *Registry) open(meta Meta) *record {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec := &record{
		seq: r.seq,
		info: Info{
			ID:        uuid.NewString(),
			Name:      meta.Name,
			Owner:     meta.Owner,
			Operator:  meta.Operator,
			CreatedAt: now,
			Active:    true,
		},
	}
	r.records[rec.info.ID] = rec
	return rec
}

func (r *Registry) emission(rec *record) {
	now := r.clock.Now()
	r.mu.Lock()
	if rec.info.Active {
		rec.info.Emissions++
		rec.info.LastEmissionAt = &now
	}
	r.mu.Unlock()
}

func (r *Registry) failure(rec *record) {
	now := r.clock.Now()
	r.mu.Lock()
	if rec.info.Active {
		rec.info.Errors++
		rec.info.LastErrorAt = &now
	}
	r.mu.Unlock()
}

// finish freezes rec and schedules its purge.
func (r *Registry) finish(rec *record) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !rec.info.Active {
		return
	}
	rec.info.Active = false
	rec.info.EndedAt = &now
	rec.info.Duration = now.Sub(rec.info.CreatedAt)

	if r.closed {
		return
	}
	if r.cfg.Retention == 0 {
		delete(r.records, rec.info.ID)
		return
	}
	id := rec.info.ID
	rec.purge = r.clock.AfterFunc(r.cfg.Retention, func() { r.purge(id) })
}

func (r *Registry) purge(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok && !rec.info.Active {
		delete(r.records, id)
	}
}

// Sweep purges every finished record whose retention has elapsed and
// returns how many were removed. Retention timers normally do this; Sweep
// is for callers that inspect the registry on their own schedule.
func (r *Registry) Sweep() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for id, rec := range r.records {
		if rec.info.Active || rec.info.EndedAt == nil {
			continue
		}
		if now.Sub(*rec.info.EndedAt) >= r.cfg.Retention {
			if rec.purge != nil {
				rec.purge()
			}
			delete(r.records, id)
			n++
		}
	}
	return n
}

// Get returns the record with the given id.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Info{}, false
	}
	return rec.info, true
}

// Records returns every retained record in creation order.
func (r *Registry) Records() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(*record) bool { return true })
}

// collect must be called with r.mu held.
func (r *Registry) collect(keep func(*record) bool) []Info {
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}
	slices.SortFunc(recs, func(a, b *record) int { return cmp.Compare(a.seq, b.seq) })

	out := make([]Info, len(recs))
	for i, rec := range recs {
		out[i] = rec.info
	}
	return out
}

// leaking must be called with r.mu held.
func (r *Registry) leaking(rec *record, now time.Time) bool {
	if !rec.info.Active || now.Sub(rec.info.CreatedAt) <= r.cfg.StaleAfter {
		return false
	}
	last := rec.info.LastEmissionAt
	return last == nil || now.Sub(*last) > r.cfg.QuietAfter
}

// LeakScore counts active records older than StaleAfter that have not
// emitted within QuietAfter. It is a heuristic.
func (r *Registry) LeakScore() int {
	return len(r.Leaks())
}

// Leaks returns the records counted by [Registry.LeakScore].
func (r *Registry) Leaks() []Info {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(rec *record) bool { return r.leaking(rec, now) })
}

func (r *Registry) checkLeaks() {
	if leaks := r.Leaks(); len(leaks) > 0 {
		r.onLeak(leaks)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.stopCheck = r.clock.AfterFunc(r.cfg.LeakCheckInterval, r.checkLeaks)
	}
}

// Metrics is an aggregate over the retained records.
type Metrics struct {
	Total     int   `json:"total" yaml:"total"`
	Active    int   `json:"active" yaml:"active"`
	Completed int   `json:"completed" yaml:"completed"`
	Emissions int64 `json:"emissions" yaml:"emissions"`
	Errors    int64 `json:"errors" yaml:"errors"`

	// AverageLifetime is the mean duration of finished records.
	AverageLifetime time.Duration `json:"average_lifetime" yaml:"average_lifetime"`
}

// Metrics computes the aggregate of the current record set.
func (r *Registry) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		m     Metrics
		total time.Duration
	)
	for _, rec := range r.records {
		m.Total++
		m.Emissions += rec.info.Emissions
		m.Errors += rec.info.Errors
		if rec.info.Active {
			m.Active++
			continue
		}
		m.Completed++
		total += rec.info.Duration
	}
	if m.Completed > 0 {
		m.AverageLifetime = total / time.Duration(m.Completed)
	}
	return m
}

// Close stops the leak check and the retention timers, and disables
// tracking. Records stay readable.
func (r *Registry) Close() {
	r.enabled.Store(false)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stops := make([]func() bool, 0, len(r.records)+1)
	if r.stopCheck != nil {
		stops = append(stops, r.stopCheck)
	}
	for _, rec := range r.records {
		if rec.purge != nil {
			stops = append(stops, rec.purge)
		}
	}
	r.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}
