package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
	"github.com/WessleyAI/wessley-inspect/engine/query"
	"github.com/WessleyAI/wessley-inspect/engine/source"
	"github.com/WessleyAI/wessley-inspect/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const vehiclesJSON = `[
	{"id":"CAR-1","owner":"E1","ownerName":"Anan"},
	{"id":"CAR-2","owner":"E2","ownerName":"Malee"},
	{"id":"CAR-3","owner":"E3","ownerName":"Kanya"}
]`

const inspectionsJSON = `[
	{"id":"car-1","date":"2024-01-01","inspector":"Niran","brake":"Fail","lat":13.7,"lng":100.5,"tireP":"http://x/1.jpg"},
	{"id":"car-1","date":"2024-02-01","inspector":"Ploy","brake":"Pass"},
	{"id":"car-2","date":"2024-01-15","brake":"Broken","brakeR":"worn pads"}
]`

type fakeFetcher struct {
	vehicles    func(context.Context, source.Params) ([]domain.Vehicle, error)
	inspections func(context.Context, source.Params) ([]domain.Inspection, error)
	calls       atomic.Int32
}

func (f *fakeFetcher) Vehicles(ctx context.Context, p source.Params) ([]domain.Vehicle, error) {
	f.calls.Add(1)
	return f.vehicles(ctx, p)
}

func (f *fakeFetcher) Inspections(ctx context.Context, p source.Params) ([]domain.Inspection, error) {
	return f.inspections(ctx, p)
}

func vehicles(t *testing.T) []domain.Vehicle {
	t.Helper()
	var out []domain.Vehicle
	if err := json.Unmarshal([]byte(vehiclesJSON), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func inspections(t *testing.T) []domain.Inspection {
	t.Helper()
	var out []domain.Inspection
	if err := json.Unmarshal([]byte(inspectionsJSON), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func staticFetcher(t *testing.T) *fakeFetcher {
	vs, ins := vehicles(t), inspections(t)
	return &fakeFetcher{
		vehicles:    func(context.Context, source.Params) ([]domain.Vehicle, error) { return vs, nil },
		inspections: func(context.Context, source.Params) ([]domain.Inspection, error) { return ins, nil },
	}
}

func newDashboard(f Fetcher, reg *metrics.Registry) *Dashboard {
	opts := Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if reg != nil {
		opts.Metrics = NewMetrics(reg)
	}
	return New(f, opts)
}

var monthly = source.Params{Area: "srb", Frequency: "monthly", VehicleType: "car", Days: 30}

func TestRefresh_Commits(t *testing.T) {
	d := newDashboard(staticFetcher(t), nil)
	if d.Snapshot() != nil {
		t.Fatal("expected no snapshot before refresh")
	}

	snap, err := d.Refresh(context.Background(), source.DefaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 1 || snap.Params != source.DefaultParams || d.Snapshot() != snap {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	want := inspection.Stats{Total: 3, NotChecked: 1, Checked: 2, Defect: 1, Normal: 1}
	if snap.Stats != want {
		t.Fatalf("expected %+v, got %+v", want, snap.Stats)
	}

	st := d.Status()
	if !st.Ready || st.Loading || st.Version != 1 || st.Vehicles != 3 || st.Inspections != 3 || st.LastError != "" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestRefresh_OnCommit(t *testing.T) {
	var committed []uint64
	d := New(staticFetcher(t), Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnCommit: func(s *Snapshot) { committed = append(committed, s.Version) },
	})
	for range 2 {
		if _, err := d.Refresh(context.Background(), source.DefaultParams); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]uint64{1, 2}, committed); diff != "" {
		t.Fatalf("commits (-want +got):\n%s", diff)
	}
}

func TestRefresh_RejectsInvalidParams(t *testing.T) {
	f := staticFetcher(t)
	d := newDashboard(f, nil)
	_, err := d.Refresh(context.Background(), source.Params{Area: "mars", Frequency: "daily", VehicleType: "car", Days: 7})
	if !errors.Is(err, domain.ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatal("invalid params should not reach the fetcher")
	}
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	f := staticFetcher(t)
	reg := metrics.New()
	d := newDashboard(f, reg)
	first, err := d.Refresh(context.Background(), source.DefaultParams)
	if err != nil {
		t.Fatal(err)
	}

	upstream := &domain.UpstreamError{Source: source.SourceInspections, Status: 503, Retryable: true, Err: errors.New("unavailable")}
	good := f.inspections
	f.inspections = func(context.Context, source.Params) ([]domain.Inspection, error) { return nil, upstream }

	_, err = d.Refresh(context.Background(), monthly)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if d.Snapshot() != first {
		t.Fatal("failed refresh must keep the previous snapshot")
	}
	st := d.Status()
	if st.LastError == "" || !st.Retryable || st.LastErrorAt == nil || st.Params == nil || *st.Params != source.DefaultParams {
		t.Fatalf("failure not surfaced: %+v", st)
	}
	if st.Requested != monthly {
		t.Fatalf("requested params should record the failed attempt, got %+v", st.Requested)
	}

	f.inspections = good
	if _, err := d.Refresh(context.Background(), monthly); err != nil {
		t.Fatal(err)
	}
	if d.LastError() != nil || d.Status().LastError != "" {
		t.Fatal("successful refresh should clear the last error")
	}
	out := reg.Render()
	for _, want := range []string{`inspect_refresh_total{result="ok"} 2`, `inspect_refresh_total{result="error"} 1`, "inspect_vehicles 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in metrics:\n%s", want, out)
		}
	}
}

func TestRefresh_EitherFailureCancelsThePair(t *testing.T) {
	cancelled := make(chan struct{})
	f := &fakeFetcher{
		vehicles: func(context.Context, source.Params) ([]domain.Vehicle, error) {
			return nil, &domain.UpstreamError{Source: source.SourceVehicles, Retryable: true, Err: errors.New("reset")}
		},
		inspections: func(ctx context.Context, _ source.Params) ([]domain.Inspection, error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	}
	d := newDashboard(f, nil)
	_, err := d.Refresh(context.Background(), source.DefaultParams)
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) || ue.Source != source.SourceVehicles {
		t.Fatalf("expected the vehicles failure, got %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Fatal("inspections fetch was not cancelled")
	}
	if d.Snapshot() != nil {
		t.Fatal("nothing should be committed")
	}
}

func TestRefresh_StaleResponseDiscarded(t *testing.T) {
	vs, ins := vehicles(t), inspections(t)
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{
		vehicles: func(_ context.Context, p source.Params) ([]domain.Vehicle, error) {
			if p == source.DefaultParams {
				close(started)
				<-release // ignores cancellation and answers late
			}
			return vs, nil
		},
		inspections: func(context.Context, source.Params) ([]domain.Inspection, error) { return ins, nil },
	}
	reg := metrics.New()
	d := newDashboard(f, reg)

	errc := make(chan error, 1)
	go func() {
		_, err := d.Refresh(context.Background(), source.DefaultParams)
		errc <- err
	}()
	<-started

	newer, err := d.Refresh(context.Background(), monthly)
	if err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, domain.ErrStale) {
		t.Fatalf("expected ErrStale for the overtaken refresh, got %v", err)
	}
	if d.Snapshot() != newer || d.Snapshot().Params != monthly {
		t.Fatal("late response replaced newer data")
	}
	if !strings.Contains(reg.Render(), `inspect_refresh_total{result="stale"} 1`) {
		t.Fatal("stale refresh not counted")
	}
	if d.LastError() != nil {
		t.Fatal("stale refresh must not be reported as a failure")
	}
}

func TestRefresh_NewRefreshCancelsInFlight(t *testing.T) {
	vs, ins := vehicles(t), inspections(t)
	started := make(chan struct{})
	f := &fakeFetcher{
		vehicles: func(ctx context.Context, p source.Params) ([]domain.Vehicle, error) {
			if p == source.DefaultParams {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return vs, nil
		},
		inspections: func(context.Context, source.Params) ([]domain.Inspection, error) { return ins, nil },
	}
	d := newDashboard(f, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := d.Refresh(context.Background(), source.DefaultParams)
		errc <- err
	}()
	<-started
	if !d.Status().Loading {
		t.Fatal("expected loading while a refresh is in flight")
	}
	if _, err := d.Refresh(context.Background(), monthly); err != nil {
		t.Fatal(err)
	}
	if err := <-errc; !errors.Is(err, domain.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if d.Status().Loading {
		t.Fatal("no refresh should be in flight")
	}
}

func TestRefresh_CallerCancellationIsNotAFailure(t *testing.T) {
	f := &fakeFetcher{
		vehicles: func(ctx context.Context, _ source.Params) ([]domain.Vehicle, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		inspections: func(ctx context.Context, _ source.Params) ([]domain.Inspection, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	d := newDashboard(f, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Refresh(ctx, source.DefaultParams)
	if err == nil {
		t.Fatal("expected an error")
	}
	if d.LastError() != nil {
		t.Fatalf("caller cancellation recorded as failure: %v", d.LastError())
	}
}

func TestEnsure(t *testing.T) {
	f := staticFetcher(t)
	d := newDashboard(f, nil)
	ctx := context.Background()

	if _, err := d.Ensure(ctx, source.DefaultParams); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Ensure(ctx, source.Params{Area: "IECO", Frequency: "daily", VehicleType: " car ", Days: 7}); err != nil {
		t.Fatal(err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected one fetch for equal params, got %d", f.calls.Load())
	}
	if _, err := d.Ensure(ctx, monthly); err != nil {
		t.Fatal(err)
	}
	if f.calls.Load() != 2 {
		t.Fatalf("expected a second fetch for new params, got %d", f.calls.Load())
	}
}

func TestPoll(t *testing.T) {
	f := staticFetcher(t)
	d := newDashboard(f, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Poll(ctx, 5*time.Millisecond, monthly)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for f.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("poll did not refresh")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
	if s := d.Snapshot(); s == nil || s.Params != monthly {
		t.Fatalf("poll should load the fallback params, got %+v", s)
	}
}

func TestQuery(t *testing.T) {
	reg := metrics.New()
	d := newDashboard(staticFetcher(t), reg)
	if _, err := d.Query(query.Params{}); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData before the first refresh, got %v", err)
	}
	if _, err := d.Refresh(context.Background(), source.DefaultParams); err != nil {
		t.Fatal(err)
	}

	r1, err := d.Query(query.Params{Status: domain.FilterDefect, Search: "car"})
	if err != nil {
		t.Fatal(err)
	}
	if r1.Total != 1 || r1.Rows[0].ID != "CAR-2" || r1.Rows[0].Remark != "worn pads" {
		t.Fatalf("unexpected result %+v", r1)
	}
	r2, err := d.Query(query.Params{Status: domain.FilterDefect, Search: " CAR ", Page: 1, PageSize: query.DefaultPageSize})
	if err != nil {
		t.Fatal(err)
	}
	if r2.Search != " CAR " {
		t.Fatalf("cached result should echo the request search, got %q", r2.Search)
	}
	if diff := cmp.Diff(r1.Rows, r2.Rows); diff != "" {
		t.Fatalf("cached rows differ (-first +second):\n%s", diff)
	}
	out := reg.Render()
	if !strings.Contains(out, `inspect_query_cache_total{result="hit"} 1`) || !strings.Contains(out, `inspect_query_cache_total{result="miss"} 1`) {
		t.Fatalf("unexpected cache metrics:\n%s", out)
	}

	if _, err := d.Refresh(context.Background(), monthly); err != nil {
		t.Fatal(err)
	}
	if d.cache.len() != 0 {
		t.Fatal("commit should clear the query cache")
	}

	if _, err := d.Query(query.Params{Status: "sideways"}); !errors.Is(err, domain.ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}

func TestViewsAtSnapshotIgnoreLaterCommits(t *testing.T) {
	vs, ins := vehicles(t), inspections(t)
	f := &fakeFetcher{
		vehicles: func(_ context.Context, p source.Params) ([]domain.Vehicle, error) {
			if p.Area == "srb" {
				return []domain.Vehicle{{ID: "BUS-9", Owner: "E9"}}, nil
			}
			return vs, nil
		},
		inspections: func(_ context.Context, p source.Params) ([]domain.Inspection, error) {
			if p.Area == "srb" {
				return nil, nil
			}
			return ins, nil
		},
	}
	d := newDashboard(f, nil)
	if _, err := d.QueryAt(nil, query.Params{}); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData for a nil snapshot, got %v", err)
	}

	ieco, err := d.Ensure(context.Background(), source.DefaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Refresh(context.Background(), monthly); err != nil {
		t.Fatal(err)
	}

	res, err := d.QueryAt(ieco, query.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || res.Rows[0].ID != "CAR-1" {
		t.Fatalf("expected the ieco rows, got %+v", res)
	}
	cur, err := d.Query(query.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if cur.Total != 1 || cur.Rows[0].ID != "BUS-9" {
		t.Fatalf("expected the srb rows, got %+v", cur)
	}

	if st, err := d.StatsAt(ieco); err != nil || st.Total != 3 || st.Defect != 1 {
		t.Fatalf("unexpected stats %+v (%v)", st, err)
	}
	if h, err := d.HistoryAt(ieco, "car-2"); err != nil || len(h) != 1 {
		t.Fatalf("unexpected history %+v (%v)", h, err)
	}
	if _, err := d.DetailAt(ieco, "car-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Detail("car-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("car-1 is not in the committed srb dataset, got %v", err)
	}
}

func TestHistoryAndDetail(t *testing.T) {
	d := newDashboard(staticFetcher(t), nil)
	if _, err := d.History("car-1"); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := d.Refresh(context.Background(), source.DefaultParams); err != nil {
		t.Fatal(err)
	}

	h, err := d.History(" CAR-1 ")
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 2 || h[0].Date != "1/1/2567 07:00:00" || h[0].Status != domain.StatusDefect || h[1].Inspector != "Ploy" {
		t.Fatalf("unexpected history %+v", h)
	}
	if h[0].MapURL == "" || len(h[0].Images) != 1 || h[1].MapURL != "" {
		t.Fatalf("history entries should carry their own map and images: %+v", h)
	}

	h, err = d.History("car-3")
	if err != nil || len(h) != 0 || h == nil {
		t.Fatalf("known vehicle without inspections should have empty history, got %v (%v)", h, err)
	}
	if _, err := d.History("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	det, err := d.Detail("car-1")
	if err != nil {
		t.Fatal(err)
	}
	if det.Row.Status != domain.StatusNormal || det.Row.HistoryCount != 2 || len(det.History) != 2 {
		t.Fatalf("unexpected detail %+v", det)
	}
	wantChecklist := []inspection.Item{{FieldKey: "brake", Value: "Pass", Compliant: true}}
	if diff := cmp.Diff(wantChecklist, det.Checklist); diff != "" {
		t.Fatalf("checklist (-want +got):\n%s", diff)
	}

	det, err = d.Detail("car-3")
	if err != nil || det.Checklist == nil || len(det.Checklist) != 0 || det.Row.Status != domain.StatusNotInspected {
		t.Fatalf("unexpected detail for uninspected vehicle %+v (%v)", det, err)
	}
	if _, err := d.Detail("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
