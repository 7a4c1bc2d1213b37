package dashboard

import "github.com/WessleyAI/wessley-inspect/pkg/metrics"

// Metrics are the dashboard's instruments.
type Metrics struct {
	RefreshOK       *metrics.Counter
	RefreshFailed   *metrics.Counter
	RefreshStale    *metrics.Counter
	RefreshDuration *metrics.Histogram
	Vehicles        *metrics.Gauge
	Inspections     *metrics.Gauge
	NotChecked      *metrics.Gauge
	Defects         *metrics.Gauge
	CacheHits       *metrics.Counter
	CacheMisses     *metrics.Counter
}

// NewMetrics registers the dashboard metrics on r.
func NewMetrics(r *metrics.Registry) *Metrics {
	const refreshes = "inspect_refresh_total"
	const refreshHelp = "Dataset refreshes by result."
	return &Metrics{
		RefreshOK:       r.Counter(refreshes, refreshHelp, "result", "ok"),
		RefreshFailed:   r.Counter(refreshes, refreshHelp, "result", "error"),
		RefreshStale:    r.Counter(refreshes, refreshHelp, "result", "stale"),
		RefreshDuration: r.Histogram("inspect_refresh_duration_seconds", "Time to fetch and index a dataset.", nil),
		Vehicles:        r.Gauge("inspect_vehicles", "Vehicles in the current dataset."),
		Inspections:     r.Gauge("inspect_inspections", "Inspection records in the current dataset."),
		NotChecked:      r.Gauge("inspect_vehicles_not_checked", "Vehicles without an inspection."),
		Defects:         r.Gauge("inspect_vehicles_defect", "Vehicles whose latest inspection has a defect."),
		CacheHits:       r.Counter("inspect_query_cache_total", "Listing cache lookups.", "result", "hit"),
		CacheMisses:     r.Counter("inspect_query_cache_total", "Listing cache lookups.", "result", "miss"),
	}
}

func (m *Metrics) committed(s *Snapshot) {
	if m == nil {
		return
	}
	m.RefreshOK.Inc()
	m.RefreshDuration.Observe(s.Took.Seconds())
	m.Vehicles.Set(int64(len(s.Vehicles)))
	m.Inspections.Set(int64(len(s.Inspections)))
	m.NotChecked.Set(int64(s.Stats.NotChecked))
	m.Defects.Set(int64(s.Stats.Defect))
}

func (m *Metrics) failed() {
	if m != nil {
		m.RefreshFailed.Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.RefreshStale.Inc()
	}
}

func (m *Metrics) cache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}
