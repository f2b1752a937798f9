package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	jobsdb "github.com/lodeapp/lode/internal/database/jobs"
	"github.com/lodeapp/lode/internal/entities"
)

// job is the manager's mutable record for one tracked job. All fields
// are guarded by mu; workers and API readers never share it directly,
// they go through the manager.
type job struct {
	mu sync.RWMutex

	id              string
	jobType         entities.JobType
	status          entities.JobStatus
	progress        int
	message         string
	params          Params
	result          map[string]any
	err             string
	cancelRequested bool
	createdAt       time.Time
	startedAt       *time.Time
	completedAt     *time.Time
}

// View is a read-only snapshot of a job, safe to hand to API readers.
type View struct {
	ID              string             `json:"id"`
	Type            entities.JobType   `json:"type"`
	Status          entities.JobStatus `json:"status"`
	Progress        int                `json:"progress"`
	Message         string             `json:"message,omitempty"`
	Result          map[string]any     `json:"result,omitempty"`
	Error           string             `json:"error,omitempty"`
	CancelRequested bool               `json:"cancel_requested"`
	CreatedAt       time.Time          `json:"created_at"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

func (j *job) view() View {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return View{
		ID:              j.id,
		Type:            j.jobType,
		Status:          j.status,
		Progress:        j.progress,
		Message:         j.message,
		Result:          j.result,
		Error:           j.err,
		CancelRequested: j.cancelRequested,
		CreatedAt:       j.createdAt,
		StartedAt:       j.startedAt,
		CompletedAt:     j.completedAt,
	}
}

// Manager is the job registry and scheduler. It is the single source of
// truth for job status while a job runs; each submitted job executes on
// its own goroutine and reports back only through the manager's
// synchronized methods. Construct one per process (or per test) and
// inject it; there is no ambient global.
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*job
	handlers map[entities.JobType]Handler
	repo     *jobsdb.Repository
}

// NewManager creates a manager persisting job rows through repo.
// repo may be nil in tests that don't need persistence.
func NewManager(repo *jobsdb.Repository) *Manager {
	return &Manager{
		jobs:     make(map[string]*job),
		handlers: make(map[entities.JobType]Handler),
		repo:     repo,
	}
}

// Register binds a handler to a job type. Must be called before any
// Submit for that type.
func (m *Manager) Register(jobType entities.JobType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[jobType] = handler
}

// Submit validates the job type, creates a pending job, persists it, and
// starts execution on its own goroutine. Never blocks on job completion.
func (m *Manager) Submit(jobType entities.JobType, params Params) (string, error) {
	m.mu.RLock()
	handler, ok := m.handlers[jobType]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	j := &job{
		id:        uuid.New().String(),
		jobType:   jobType,
		status:    entities.JobStatusPending,
		params:    params,
		createdAt: time.Now(),
	}

	if err := m.persistNew(j); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()

	log.Printf("[JOB] %s submitted (%s)", j.id, jobType)
	go m.run(j, handler)

	return j.id, nil
}

// run is the worker boundary: any panic or error escaping the handler is
// converted to a failed terminal state. A job never ends up orphaned in
// running.
func (m *Manager) run(j *job, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[JOB] %s panicked: %v", j.id, r)
			m.finish(j, entities.JobStatusFailed, nil, fmt.Sprintf("internal error: %v", r))
		}
	}()

	// A job cancelled while still pending exits before doing any work.
	if m.cancelRequestedFor(j) {
		m.finish(j, entities.JobStatusCancelled, nil, "")
		return
	}

	m.setRunning(j)

	progress := func(percent int, message string) {
		m.reportProgress(j, percent, message)
	}
	cancelled := func() bool {
		return m.cancelRequestedFor(j)
	}

	result, err := handler.Run(context.Background(), j.params, progress, cancelled)
	switch {
	case err == nil:
		m.finish(j, entities.JobStatusCompleted, result, "")
	case errors.Is(err, ErrCancelled):
		m.finish(j, entities.JobStatusCancelled, result, "")
	default:
		m.finish(j, entities.JobStatusFailed, nil, err.Error())
	}
}

func (m *Manager) setRunning(j *job) {
	j.mu.Lock()
	now := time.Now()
	j.status = entities.JobStatusRunning
	j.startedAt = &now
	j.mu.Unlock()
	m.persist(j)
}

// reportProgress applies a worker's progress report. Progress is
// monotonically non-decreasing while running; stale or out-of-order
// reports are clamped rather than rejected.
func (m *Manager) reportProgress(j *job, percent int, message string) {
	j.mu.Lock()
	if j.status.Terminal() {
		j.mu.Unlock()
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent > j.progress {
		j.progress = percent
	}
	if message != "" {
		j.message = message
	}
	j.mu.Unlock()
	m.persist(j)
}

// finish performs the single terminal transition. Once terminal, every
// later call is a no-op: no transition out of a terminal state.
func (m *Manager) finish(j *job, status entities.JobStatus, result map[string]any, errText string) {
	j.mu.Lock()
	if j.status.Terminal() {
		j.mu.Unlock()
		return
	}
	now := time.Now()
	j.status = status
	j.completedAt = &now
	switch status {
	case entities.JobStatusCompleted:
		j.progress = 100
		j.result = result
		if j.message == "" {
			j.message = "completed"
		}
	case entities.JobStatusCancelled:
		j.result = result
		j.message = "cancelled by user"
	case entities.JobStatusFailed:
		j.err = errText
	}
	j.mu.Unlock()
	m.persist(j)

	log.Printf("[JOB] %s finished: %s", j.id, status)
}

func (m *Manager) cancelRequestedFor(j *job) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.cancelRequested
}

// Get returns a snapshot of the job, falling back to persisted rows for
// jobs finished in an earlier process.
func (m *Manager) Get(id string) (View, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if ok {
		return j.view(), nil
	}

	if m.repo != nil {
		row, err := m.repo.Get(id)
		if err == nil {
			return rowView(row), nil
		}
	}
	return View{}, ErrNotFound
}

// List returns snapshots of all known jobs ordered by creation time
// descending. Live in-memory state wins over the persisted mirror.
func (m *Manager) List() []View {
	seen := make(map[string]bool)
	views := make([]View, 0)

	m.mu.RLock()
	for id, j := range m.jobs {
		views = append(views, j.view())
		seen[id] = true
	}
	m.mu.RUnlock()

	if m.repo != nil {
		rows, err := m.repo.List(0)
		if err != nil {
			log.Printf("WARNING: failed to list persisted jobs: %v", err)
		} else {
			for i := range rows {
				if !seen[rows[i].ID] {
					views = append(views, rowView(&rows[i]))
				}
			}
		}
	}

	sort.Slice(views, func(a, b int) bool {
		return views[a].CreatedAt.After(views[b].CreatedAt)
	})
	return views
}

// Cancel requests cooperative cancellation. Pending and running jobs get
// the flag set and are cancelled at the worker's next checkpoint;
// terminal jobs return ErrInvalidState untouched.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		if m.repo != nil {
			if _, err := m.repo.Get(id); err == nil {
				// Known job from an earlier process; necessarily terminal.
				return ErrInvalidState
			}
		}
		return ErrNotFound
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return ErrInvalidState
	}
	j.cancelRequested = true
	log.Printf("[JOB] %s cancellation requested", id)
	return nil
}

func (m *Manager) persistNew(j *job) error {
	if m.repo == nil {
		return nil
	}
	row := j.row()
	if err := m.repo.Create(row); err != nil {
		return fmt.Errorf("persist job: %w", err)
	}
	return nil
}

func (m *Manager) persist(j *job) {
	if m.repo == nil {
		return
	}
	if err := m.repo.Update(j.row()); err != nil {
		log.Printf("WARNING: failed to persist job %s: %v", j.id, err)
	}
}

func (j *job) row() *entities.Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	paramsJSON, _ := json.Marshal(j.params)
	resultJSON := ""
	if j.result != nil {
		if b, err := json.Marshal(j.result); err == nil {
			resultJSON = string(b)
		}
	}
	return &entities.Job{
		ID:          j.id,
		Type:        j.jobType,
		Status:      j.status,
		Progress:    j.progress,
		Message:     j.message,
		ParamsJSON:  string(paramsJSON),
		ResultJSON:  resultJSON,
		ErrorText:   j.err,
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
	}
}

func rowView(row *entities.Job) View {
	var result map[string]any
	if row.ResultJSON != "" {
		_ = json.Unmarshal([]byte(row.ResultJSON), &result)
	}
	return View{
		ID:          row.ID,
		Type:        row.Type,
		Status:      row.Status,
		Progress:    row.Progress,
		Message:     row.Message,
		Result:      result,
		Error:       row.ErrorText,
		CreatedAt:   row.CreatedAt,
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}
}
