package debug

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/baxromumarov/lifebound"
	"github.com/baxromumarov/lifebound/internal/clocktest"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T, cfg Config, opts ...Option) (*Registry, *clocktest.Clock) {
	t.Helper()
	clock := clocktest.New(epoch)
	r := New(cfg, append([]Option{WithClock(clock)}, opts...)...)
	t.Cleanup(r.Close)
	return r, clock
}

func TestTrack_DisabledReturnsSource(t *testing.T) {
	src := lifebound.Of(1, 2)

	cfg := DefaultConfig()
	cfg.Enabled = false
	r, _ := newTestRegistry(t, cfg)

	assert.Same(t, src, Track(r, src, Meta{Name: "x"}))
	assert.Same(t, src, Track[int](nil, src, Meta{}), "nil registry is disabled")
}

func TestTrack_PassiveAndCounted(t *testing.T) {
	r, clock := newTestRegistry(t, DefaultConfig())
	subj := lifebound.NewSubject[int]()

	var got []int
	var completed bool
	sub := Track(r, subj.Stream(), Meta{Name: "feed", Owner: "page", Operator: "map"}).
		Subscribe(lifebound.Observer[int]{
			Next:     func(v int) { got = append(got, v) },
			Complete: func() { completed = true },
		})

	recs := r.Records()
	require.Len(t, recs, 1)
	id := recs[0].ID
	assert.True(t, recs[0].Active)
	assert.Equal(t, "feed", recs[0].Name)
	assert.Equal(t, "page", recs[0].Owner)
	assert.Equal(t, "map", recs[0].Operator)

	clock.Advance(time.Second)
	subj.Next(1)
	clock.Advance(time.Second)
	subj.Next(2)

	in, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, int64(2), in.Emissions)
	require.NotNil(t, in.LastEmissionAt)
	assert.Equal(t, epoch.Add(2*time.Second), *in.LastEmissionAt)
	assert.Nil(t, in.LastErrorAt)

	clock.Advance(3 * time.Second)
	subj.Complete()

	assert.Equal(t, []int{1, 2}, got, "values pass through unchanged")
	assert.True(t, completed)
	assert.True(t, sub.Closed())

	in, _ = r.Get(id)
	assert.False(t, in.Active)
	assert.Equal(t, 5*time.Second, in.Duration, "duration frozen at teardown")

	clock.Advance(30 * time.Second)
	in, ok = r.Get(id)
	require.True(t, ok, "finished record is retained")
	assert.Equal(t, 5*time.Second, in.Duration)
}

func TestTrack_ErrorsCounted(t *testing.T) {
	r, _ := newTestRegistry(t, DefaultConfig())
	boom := errors.New("boom")

	var got error
	Track(r, lifebound.Fail[int](boom), Meta{Name: "bad"}).Subscribe(lifebound.Observer[int]{
		Error: func(err error) { got = err },
	})

	assert.Same(t, boom, got, "error content is unchanged")
	recs := r.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].Errors)
	assert.NotNil(t, recs[0].LastErrorAt)
	assert.False(t, recs[0].Active)
}

func TestTrack_EachSubscriptionIsARecord(t *testing.T) {
	r, _ := newTestRegistry(t, DefaultConfig())
	tracked := Track(r, lifebound.Never[int](), Meta{Name: "n"})

	a := tracked.Subscribe(lifebound.Observer[int]{})
	tracked.Subscribe(lifebound.Observer[int]{})
	a.Close()
	a.Close()

	m := r.Metrics()
	assert.Equal(t, 2, m.Total)
	assert.Equal(t, 1, m.Active)
	assert.Equal(t, 1, m.Completed)
}

func TestRetention_PurgesFinishedRecords(t *testing.T) {
	r, clock := newTestRegistry(t, DefaultConfig())
	sub := Track(r, lifebound.Never[int](), Meta{}).Subscribe(lifebound.Observer[int]{})
	live := Track(r, lifebound.Never[int](), Meta{}).Subscribe(lifebound.Observer[int]{})
	defer live.Close()

	sub.Close()
	clock.Advance(59 * time.Second)
	assert.Len(t, r.Records(), 2, "finished record kept for inspection")

	clock.Advance(time.Second)
	recs := r.Records()
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Active, "active records are never purged")
}

func TestSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retention = 10 * time.Second
	r, clock := newTestRegistry(t, cfg)

	Track(r, lifebound.Empty[int](), Meta{}).Subscribe(lifebound.Observer[int]{})
	assert.Equal(t, 0, r.Sweep(), "retention not yet elapsed")

	clock.Advance(10 * time.Second)
	assert.Empty(t, r.Records())
	assert.Equal(t, 0, r.Sweep())
}

func TestRetention_Zero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retention = 0
	r, _ := newTestRegistry(t, cfg)

	Track(r, lifebound.Of(1), Meta{}).Subscribe(lifebound.Observer[int]{})
	assert.Empty(t, r.Records())
}

func TestLeakScore(t *testing.T) {
	r, clock := newTestRegistry(t, DefaultConfig())
	quiet := lifebound.NewSubject[int]()
	chatty := lifebound.NewSubject[int]()

	Track(r, quiet.Stream(), Meta{Name: "quiet"}).Subscribe(lifebound.Observer[int]{})
	Track(r, chatty.Stream(), Meta{Name: "chatty"}).Subscribe(lifebound.Observer[int]{})
	Track(r, lifebound.Empty[int](), Meta{Name: "done"}).Subscribe(lifebound.Observer[int]{})

	clock.Advance(4 * time.Minute)
	assert.Equal(t, 0, r.LeakScore(), "young records are not leaks")

	clock.Advance(2 * time.Minute)
	chatty.Next(1)
	leaks := r.Leaks()
	require.Len(t, leaks, 1)
	assert.Equal(t, "quiet", leaks[0].Name)

	clock.Advance(61 * time.Second)
	assert.Equal(t, 2, r.LeakScore(), "a stale record that went quiet counts")
}

func TestLeakCheck_Periodic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LeakCheckInterval = time.Minute
	var reports [][]Info
	r, clock := newTestRegistry(t, cfg, WithLeakCallback(func(leaks []Info) {
		reports = append(reports, leaks)
	}))

	Track(r, lifebound.Never[int](), Meta{Name: "stuck"}).Subscribe(lifebound.Observer[int]{})

	clock.Advance(5 * time.Minute)
	assert.Empty(t, reports, "nothing is stale yet")

	clock.Advance(time.Minute)
	require.Len(t, reports, 1)
	assert.Equal(t, "stuck", reports[0][0].Name)

	r.Close()
	clock.Advance(time.Hour)
	assert.Len(t, reports, 1, "Close stops the leak check")
}

func TestMetrics(t *testing.T) {
	r, clock := newTestRegistry(t, DefaultConfig())
	subj := lifebound.NewSubject[int]()

	a := Track(r, subj.Stream(), Meta{}).Subscribe(lifebound.Observer[int]{})
	b := Track(r, subj.Stream(), Meta{}).Subscribe(lifebound.Observer[int]{})
	Track(r, subj.Stream(), Meta{}).Subscribe(lifebound.Observer[int]{})

	subj.Next(1)
	clock.Advance(2 * time.Second)
	a.Close()
	clock.Advance(2 * time.Second)
	b.Close()

	m := r.Metrics()
	assert.Equal(t, Metrics{
		Total:           3,
		Active:          1,
		Completed:       2,
		Emissions:       3,
		AverageLifetime: 3 * time.Second,
	}, m)
}

func TestExport(t *testing.T) {
	r, _ := newTestRegistry(t, DefaultConfig())
	Track(r, lifebound.Of(1, 2), Meta{Name: "pair", Owner: "page"}).Subscribe(lifebound.Observer[int]{})

	snap := r.Export()
	assert.Equal(t, epoch, snap.Timestamp)
	assert.True(t, snap.Enabled)
	assert.Equal(t, 1, snap.Metrics.Total)
	require.Len(t, snap.Records, 1)

	js, err := r.ExportJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js, &decoded))
	for _, key := range []string{"timestamp", "enabled", "metrics", "leak_score", "records"} {
		assert.Contains(t, decoded, key)
	}
	rec := decoded["records"].([]any)[0].(map[string]any)
	assert.Equal(t, "pair", rec["name"])
	assert.Equal(t, float64(2), rec["emissions"])
	assert.NotContains(t, rec, "last_error_at", "unset timestamps are omitted")

	ym, err := r.ExportYAML()
	require.NoError(t, err)
	var ydecoded map[string]any
	require.NoError(t, yaml.Unmarshal(ym, &ydecoded))
	assert.Contains(t, ydecoded, "leak_score")
	assert.Contains(t, string(ym), "name: pair")
}

func TestSetEnabled(t *testing.T) {
	r, _ := newTestRegistry(t, DefaultConfig())
	src := lifebound.Of(1)

	r.SetEnabled(false)
	assert.Same(t, src, Track(r, src, Meta{}))

	r.SetEnabled(true)
	assert.NotSame(t, src, Track(r, src, Meta{}))
}

func TestCollector(t *testing.T) {
	r, _ := newTestRegistry(t, DefaultConfig())
	Track(r, lifebound.Never[int](), Meta{}).Subscribe(lifebound.Observer[int]{})
	Track(r, lifebound.Of(1, 2, 3), Meta{}).Subscribe(lifebound.Observer[int]{})

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(r, "app")))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Len(t, values, 7)
	assert.Equal(t, float64(2), values["app_subscriptions_tracked"])
	assert.Equal(t, float64(1), values["app_subscriptions_active"])
	assert.Equal(t, float64(3), values["app_subscriptions_emissions"])
	assert.Equal(t, float64(0), values["app_subscriptions_leak_score"])
}

func TestConfig(t *testing.T) {
	t.Setenv("LIFEBOUND_DEBUG", "true")
	t.Setenv("LIFEBOUND_DEBUG_RETENTION", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Retention)
	assert.Equal(t, 5*time.Minute, cfg.StaleAfter)
	assert.Equal(t, time.Minute, cfg.QuietAfter)
	assert.Zero(t, cfg.LeakCheckInterval)
}

func TestConfig_Invalid(t *testing.T) {
	t.Setenv("LIFEBOUND_DEBUG_QUIET_AFTER", "-1s")
	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("LIFEBOUND_DEBUG_QUIET_AFTER", "soon")
	_, err = LoadConfig()
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Retention = -time.Second
	assert.Panics(t, func() { New(cfg) })
}
