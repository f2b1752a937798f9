package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodeapp/lode/internal/entities"
)

// stubHandler scripts a handler for manager tests. Steps run between
// cancellation checkpoints, mirroring how real handlers process one
// record per checkpoint.
type stubHandler struct {
	steps   int
	stepGap time.Duration
	result  map[string]any
	err     error

	// release, when set, blocks the handler until closed so tests can
	// observe the running state.
	release chan struct{}

	mu        sync.Mutex
	stepsDone int
}

func (h *stubHandler) Run(ctx context.Context, params Params, progress ProgressFunc, cancelled CancelledFunc) (map[string]any, error) {
	if h.release != nil {
		<-h.release
	}
	for i := 0; i < h.steps; i++ {
		if cancelled() {
			return map[string]any{"steps_done": i}, ErrCancelled
		}
		h.mu.Lock()
		h.stepsDone++
		h.mu.Unlock()
		progress((i+1)*100/h.steps, fmt.Sprintf("step %d", i+1))
		if h.stepGap > 0 {
			time.Sleep(h.stepGap)
		}
	}
	if h.err != nil {
		return nil, h.err
	}
	return h.result, nil
}

func waitTerminal(t *testing.T, m *Manager, id string) View {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, err := m.Get(id)
		require.NoError(t, err)
		if view.Status.Terminal() {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", id)
	return View{}
}

func TestManager_SubmitUnknownType(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Submit(entities.JobTypeImport, Params{})
	assert.ErrorIs(t, err, ErrUnknownJobType)
}

func TestManager_CompletedJobCarriesResult(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &stubHandler{
		steps:  3,
		result: map[string]any{"conversations_imported": 3},
	})

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)

	view := waitTerminal(t, m, id)
	assert.Equal(t, entities.JobStatusCompleted, view.Status)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, map[string]any{"conversations_imported": 3}, view.Result)
	assert.NotNil(t, view.StartedAt)
	assert.NotNil(t, view.CompletedAt)
	assert.Empty(t, view.Error)
}

func TestManager_FailedJobCarriesError(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &stubHandler{
		steps: 1,
		err:   errors.New("source file unreadable"),
	})

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)

	view := waitTerminal(t, m, id)
	assert.Equal(t, entities.JobStatusFailed, view.Status)
	assert.Equal(t, "source file unreadable", view.Error)
	assert.Nil(t, view.Result)
}

func TestManager_PanicBecomesFailed(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &panicHandler{})

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)

	view := waitTerminal(t, m, id)
	assert.Equal(t, entities.JobStatusFailed, view.Status)
	assert.Contains(t, view.Error, "internal error")
}

type panicHandler struct{}

func (h *panicHandler) Run(ctx context.Context, params Params, progress ProgressFunc, cancelled CancelledFunc) (map[string]any, error) {
	panic("boom")
}

func TestManager_CancelRunningJobAtCheckpoint(t *testing.T) {
	handler := &stubHandler{steps: 1000, stepGap: time.Millisecond}
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, handler)

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)

	// Let it get going, then cancel.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err := m.Get(id)
		require.NoError(t, err)
		if view.Status == entities.JobStatusRunning && view.Progress > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, m.Cancel(id))

	view := waitTerminal(t, m, id)
	assert.Equal(t, entities.JobStatusCancelled, view.Status)
	assert.Equal(t, "cancelled by user", view.Message)
	// Partial result survives cancellation
	require.NotNil(t, view.Result)
	assert.Contains(t, view.Result, "steps_done")
	// Cancelled partway, not run to completion
	handler.mu.Lock()
	assert.Less(t, handler.stepsDone, 1000)
	handler.mu.Unlock()
}

func TestManager_CancelPendingJobDoesNoWork(t *testing.T) {
	handler := &stubHandler{steps: 5, release: make(chan struct{})}
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, handler)

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)
	require.NoError(t, m.Cancel(id))
	close(handler.release)

	view := waitTerminal(t, m, id)
	assert.Equal(t, entities.JobStatusCancelled, view.Status)
	handler.mu.Lock()
	assert.Zero(t, handler.stepsDone)
	handler.mu.Unlock()
}

func TestManager_CancelTerminalJobIsInvalid(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &stubHandler{steps: 1})

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)
	waitTerminal(t, m, id)

	assert.ErrorIs(t, m.Cancel(id), ErrInvalidState)
}

func TestManager_CancelUnknownJob(t *testing.T) {
	m := NewManager(nil)
	assert.ErrorIs(t, m.Cancel("no-such-id"), ErrNotFound)
}

func TestManager_GetUnknownJob(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_TerminalStateIsFinal(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &stubHandler{steps: 1, result: map[string]any{"ok": true}})

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)
	view := waitTerminal(t, m, id)
	require.Equal(t, entities.JobStatusCompleted, view.Status)

	// A late progress report must not disturb the terminal state.
	m.mu.RLock()
	j := m.jobs[id]
	m.mu.RUnlock()
	m.reportProgress(j, 10, "stale report")
	m.finish(j, entities.JobStatusFailed, nil, "stale failure")

	after, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, entities.JobStatusCompleted, after.Status)
	assert.Equal(t, 100, after.Progress)
	assert.Empty(t, after.Error)
}

func TestManager_ProgressIsMonotonic(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &stubHandler{steps: 1, release: make(chan struct{})})

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)

	m.mu.RLock()
	j := m.jobs[id]
	m.mu.RUnlock()

	m.reportProgress(j, 40, "forty")
	m.reportProgress(j, 20, "stale")
	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 40, view.Progress)

	m.reportProgress(j, 150, "overshoot")
	view, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Progress)
}

func TestManager_ConcurrentSubmissionsIsolated(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &stubHandler{steps: 3, result: map[string]any{"ok": true}})

	ids := make([]string, 10)
	for i := range ids {
		id, err := m.Submit(entities.JobTypeImport, Params{})
		require.NoError(t, err)
		ids[i] = id
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		view := waitTerminal(t, m, id)
		assert.Equal(t, entities.JobStatusCompleted, view.Status)
		assert.False(t, seen[id], "duplicate job id %s", id)
		seen[id] = true
	}
}

func TestManager_ListSortedByCreationDesc(t *testing.T) {
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, &stubHandler{steps: 1})

	first, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)
	waitTerminal(t, m, first)
	time.Sleep(2 * time.Millisecond)
	second, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)
	waitTerminal(t, m, second)

	views := m.List()
	require.Len(t, views, 2)
	assert.Equal(t, second, views[0].ID)
	assert.Equal(t, first, views[1].ID)
}

func TestManager_SnapshotReadableWhileRunning(t *testing.T) {
	handler := &stubHandler{steps: 1, release: make(chan struct{})}
	m := NewManager(nil)
	m.Register(entities.JobTypeImport, handler)

	id, err := m.Submit(entities.JobTypeImport, Params{})
	require.NoError(t, err)

	// Get never blocks on the worker.
	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Contains(t, []entities.JobStatus{entities.JobStatusPending, entities.JobStatusRunning}, view.Status)

	close(handler.release)
	waitTerminal(t, m, id)
}
