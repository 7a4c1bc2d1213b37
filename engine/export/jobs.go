package export

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

// ErrNotReady is returned for the file of a job that has not finished.
var ErrNotReady = errors.New("export not ready")

// DefaultMaxJobs bounds the number of retained jobs.
const DefaultMaxJobs = 16

// State is the lifecycle state of an export job.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Source is the dataset an export is built from. It is captured when the
// job starts and never modified afterwards.
type Source struct {
	Vehicles    []domain.Vehicle
	Inspections []domain.Inspection
	Locale      domain.Locale
	Version     uint64
}

// Job describes one export run.
type Job struct {
	ID         string    `json:"id"`
	State      State     `json:"state"`
	FileName   string    `json:"fileName"`
	Rows       int       `json:"rows"`
	Version    uint64    `json:"version"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Size       int       `json:"size"`
}

type entry struct {
	job  Job
	data []byte
}

// Jobs runs exports in the background and keeps the most recent results.
type Jobs struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	max     int
	wg      sync.WaitGroup
	logger  *slog.Logger

	// OnFinish, when set, observes every finished job.
	OnFinish func(Job, time.Duration)

	now func() time.Time
}

// NewJobs creates a runner retaining up to max jobs (DefaultMaxJobs if < 1).
func NewJobs(max int, logger *slog.Logger) *Jobs {
	if max < 1 {
		max = DefaultMaxJobs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Jobs{
		entries: make(map[string]*entry),
		max:     max,
		logger:  logger,
		now:     time.Now,
	}
}

// Start launches an export of src and returns immediately.
func (j *Jobs) Start(src Source) Job {
	created := j.now()
	job := Job{
		ID:        uuid.NewString(),
		State:     StateRunning,
		FileName:  FileName(created),
		Version:   src.Version,
		CreatedAt: created,
	}

	j.mu.Lock()
	j.entries[job.ID] = &entry{job: job}
	j.order = append(j.order, job.ID)
	j.evictLocked()
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run(job.ID, src)
	return job
}

func (j *Jobs) run(id string, src Source) {
	defer j.wg.Done()
	start := time.Now()

	data, rows, err := render(src)

	j.mu.Lock()
	e, ok := j.entries[id]
	if ok {
		e.job.FinishedAt = j.now()
		e.job.Rows = rows
		if err != nil {
			e.job.State = StateFailed
			e.job.Error = err.Error()
		} else {
			e.job.State = StateDone
			e.job.Size = len(data)
			e.data = data
		}
	}
	var job Job
	if ok {
		job = e.job
	}
	j.mu.Unlock()

	if err != nil {
		j.logger.Error("export failed", "job", id, "err", err)
	} else {
		j.logger.Info("export finished", "job", id, "rows", rows, "bytes", len(data))
	}
	if ok && j.OnFinish != nil {
		j.OnFinish(job, time.Since(start))
	}
}

func render(src Source) ([]byte, int, error) {
	t := Build(src.Vehicles, src.Inspections, src.Locale)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, t); err != nil {
		return nil, len(t.Rows), err
	}
	return buf.Bytes(), len(t.Rows), nil
}

// evictLocked drops the oldest finished jobs beyond the retention bound.
// Running jobs are never evicted.
func (j *Jobs) evictLocked() {
	for len(j.order) > j.max {
		victim := -1
		for i, id := range j.order {
			if j.entries[id].job.State != StateRunning {
				victim = i
				break
			}
		}
		if victim < 0 {
			return
		}
		delete(j.entries, j.order[victim])
		j.order = append(j.order[:victim], j.order[victim+1:]...)
	}
}

// Get returns the job with the given id.
func (j *Jobs) Get(id string) (Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[id]
	if !ok {
		return Job{}, fmt.Errorf("export %s: %w", id, domain.ErrNotFound)
	}
	return e.job, nil
}

// File returns the finished workbook of a job.
func (j *Jobs) File(id string) (Job, []byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[id]
	if !ok {
		return Job{}, nil, fmt.Errorf("export %s: %w", id, domain.ErrNotFound)
	}
	switch e.job.State {
	case StateDone:
		return e.job, e.data, nil
	case StateFailed:
		return e.job, nil, fmt.Errorf("export %s: %s", id, e.job.Error)
	default:
		return e.job, nil, fmt.Errorf("export %s: %w", id, ErrNotReady)
	}
}

// List returns retained jobs, oldest first.
func (j *Jobs) List() []Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Job, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, j.entries[id].job)
	}
	return out
}

// Wait blocks until every started job has finished.
func (j *Jobs) Wait() { j.wg.Wait() }
