package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"snapshotfetcher/internal/coordinator"
	"snapshotfetcher/internal/table"
)

// JobState is the lifecycle stage of an uploaded batch.
type JobState string

const (
	JobPending  JobState = "pending"
	JobRunning  JobState = "running"
	JobDone     JobState = "done"
	JobCanceled JobState = "canceled"
)

// Job is one uploaded ticker list and, once run, its result table.
type Job struct {
	ID        uuid.UUID
	Source    string
	Tickers   []string
	CreatedAt time.Time

	mu        sync.Mutex
	state     JobState
	processed int
	failed    int
	current   string
	result    *table.Table
	err       error
}

// JobStatus is a point-in-time view of a Job.
type JobStatus struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	State     JobState `json:"state"`
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Current   string   `json:"current,omitempty"`
	Error     string   `json:"error,omitempty"`
	CreatedAt string   `json:"created_at"`
}

func newJob(source string, tickers []string) *Job {
	return &Job{
		ID:        uuid.New(),
		Source:    source,
		Tickers:   tickers,
		CreatedAt: time.Now().UTC(),
		state:     JobPending,
	}
}

// start moves a pending job to running. It reports false if the job was
// already started.
func (j *Job) start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobPending {
		return false
	}
	j.state = JobRunning
	return true
}

func (j *Job) observe(p coordinator.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.processed = p.Index
	j.current = p.Ticker
	if p.Record.Failed() {
		j.failed++
	}
}

func (j *Job) finish(result *table.Table, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
	j.err = err
	j.current = ""
	if err != nil {
		j.state = JobCanceled
		return
	}
	j.state = JobDone
}

// Result returns the finished table, or nil while the job has not completed.
func (j *Job) Result() *table.Table {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobDone {
		return nil
	}
	return j.result
}

// Status snapshots the job's progress.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := JobStatus{
		ID:        j.ID.String(),
		Source:    j.Source,
		State:     j.state,
		Total:     len(j.Tickers),
		Processed: j.processed,
		Failed:    j.failed,
		Current:   j.current,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}

// jobStore keeps jobs in memory for the life of the process.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[uuid.UUID]*Job)}
}

func (s *jobStore) add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

func (s *jobStore) get(id uuid.UUID) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}
