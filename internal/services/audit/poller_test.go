package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/parceirolabs/auditrecon/internal/models"
)

func trackedJob(jobID, status string) models.Job {
	return models.Job{JobID: jobID, Status: status, Origin: models.OriginIndividual}
}

// auditBackend is a scripted fake backend: each job ID maps to a queue of
// statuses returned by successive GETs, with the last entry repeating.
type auditBackend struct {
	mu       sync.Mutex
	statuses map[string][]string
	fetches  map[string]int
	failing  map[string]bool
}

func newAuditBackend() *auditBackend {
	return &auditBackend{
		statuses: make(map[string][]string),
		fetches:  make(map[string]int),
		failing:  make(map[string]bool),
	}
}

func (b *auditBackend) script(jobID string, statuses ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[jobID] = statuses
}

func (b *auditBackend) setFailing(jobID string, failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[jobID] = failing
}

func (b *auditBackend) fetchCount(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches[jobID]
}

func (b *auditBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Path[len("/partners/audit/"):]

	b.mu.Lock()
	queue, known := b.statuses[jobID]
	if !known {
		b.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	b.fetches[jobID]++
	if b.failing[jobID] {
		b.mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	status := queue[0]
	if len(queue) > 1 {
		b.statuses[jobID] = queue[1:]
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"jobId": jobID, "status": status})
}

func newTestPoller(t *testing.T, backend *auditBackend) (*Poller, *Service) {
	t.Helper()
	service, _, _ := newTestService(t, backend)
	poller := NewPoller(service.Registry(), service, arbor.NewLogger(),
		WithInterval(10*time.Millisecond),
		WithConcurrency(2),
	)
	return poller, service
}

func TestPoller_TickConvergesNonFinalJobs(t *testing.T) {
	backend := newAuditBackend()
	backend.script("J1", "running", "running", "completed")
	backend.script("J2", "falhou")

	poller, service := newTestPoller(t, backend)

	service.Registry().Upsert(trackedJob("J1", "running"))
	service.Registry().Upsert(trackedJob("J2", "queued"))

	// Tick 1: both fetched, J1 still running, J2 lands on the final "falhou"
	fetched := poller.Tick(context.Background())
	assert.Equal(t, 2, fetched)

	j2, _ := service.Registry().Get("J2")
	assert.True(t, j2.IsFinal())

	// Tick 2: only J1 remains in the target set
	fetched = poller.Tick(context.Background())
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 1, backend.fetchCount("J2"), "final jobs are never re-fetched")

	// Tick 3: J1 completes
	fetched = poller.Tick(context.Background())
	assert.Equal(t, 1, fetched)

	j1, _ := service.Registry().Get("J1")
	assert.True(t, j1.IsFinal())

	// Registry drained of non-final work; ticks become no-ops
	assert.Equal(t, 0, poller.Tick(context.Background()))
}

func TestPoller_PerJobFailureIsolation(t *testing.T) {
	backend := newAuditBackend()
	backend.script("J1", "completed")
	backend.script("J2", "running")
	backend.setFailing("J2", true)

	poller, service := newTestPoller(t, backend)

	service.Registry().Upsert(trackedJob("J1", "running"))
	service.Registry().Upsert(trackedJob("J2", "running"))

	fetched := poller.Tick(context.Background())
	assert.Equal(t, 2, fetched)

	// J1 converged despite J2's failure
	j1, _ := service.Registry().Get("J1")
	assert.True(t, j1.IsFinal())

	// J2 kept its last known state and stays in the target set
	j2, _ := service.Registry().Get("J2")
	assert.Equal(t, "running", j2.Status)
	require.Len(t, service.Registry().NonFinal(), 1)

	// Once the backend recovers the next tick picks J2 up again
	backend.setFailing("J2", false)
	backend.script("J2", "cancelado")
	poller.Tick(context.Background())

	j2, _ = service.Registry().Get("J2")
	assert.True(t, j2.IsFinal())
	assert.Empty(t, service.Registry().NonFinal())
}

func TestPoller_StartStop(t *testing.T) {
	backend := newAuditBackend()
	poller, _ := newTestPoller(t, backend)

	require.False(t, poller.IsRunning())
	require.NoError(t, poller.Start())
	assert.True(t, poller.IsRunning())
	assert.Error(t, poller.Start(), "double start is rejected")

	poller.Stop()
	assert.False(t, poller.IsRunning())
	poller.Stop() // idempotent
}

func TestPoller_RunsAgainstLiveRegistry(t *testing.T) {
	backend := newAuditBackend()
	backend.script("J1", "running", "completed")

	poller, service := newTestPoller(t, backend)

	require.NoError(t, poller.Start())
	defer poller.Stop()

	service.Registry().Upsert(trackedJob("J1", "running"))

	deadline := time.After(2 * time.Second)
	for {
		if job, ok := service.Registry().Get("J1"); ok && job.IsFinal() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("job never reached a final status")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
