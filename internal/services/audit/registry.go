// Package audit implements the partner audit reconciliation engine: an
// in-memory registry of audit jobs, the dispatcher that issues job
// operations against the backend, and the poller that re-fetches non-final
// jobs until they settle.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/parceirolabs/auditrecon/internal/interfaces"
	"github.com/parceirolabs/auditrecon/internal/metrics"
	"github.com/parceirolabs/auditrecon/internal/models"
)

// Registry is an ordered collection of canonical Job records keyed by job
// identifier. The ordered view is most-recently-touched first. Records are
// never deleted; the registry only grows for the life of the session.
type Registry struct {
	mu     sync.Mutex
	jobs   map[string]*models.Job
	order  []string
	clock  interfaces.Clock
	events interfaces.EventService
	stats  *metrics.Collector
	logger arbor.ILogger
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithClock sets the wall-clock source used for LastCheckedAt stamps.
func WithClock(clock interfaces.Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithRegistryMetrics sets the metrics collector.
func WithRegistryMetrics(stats *metrics.Collector) RegistryOption {
	return func(r *Registry) {
		r.stats = stats
	}
}

// NewRegistry creates an empty job registry.
func NewRegistry(events interfaces.EventService, logger arbor.ILogger, opts ...RegistryOption) *Registry {
	r := &Registry{
		jobs:   make(map[string]*models.Job),
		clock:  interfaces.ClockFunc(time.Now),
		events: events,
		logger: logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Upsert inserts or merge-updates a job keyed by its JobID and returns the
// merged record. Merging is field-by-field: a non-null value in the new
// record wins, otherwise the prior value is retained. LastCheckedAt is
// always overwritten with the current time, and the job moves to the head
// of the ordered view.
func (r *Registry) Upsert(job models.Job) models.Job {
	r.mu.Lock()

	existing, known := r.jobs[job.JobID]
	var merged models.Job
	if known {
		merged = mergeJobs(*existing, job)
	} else {
		merged = job.Clone()
	}
	merged.LastCheckedAt = r.clock.Now()

	r.jobs[job.JobID] = &merged
	r.touch(job.JobID, !known)

	snapshot := merged.Clone()
	r.mu.Unlock()

	r.logger.Debug().
		Str("job_id", snapshot.JobID).
		Str("status", snapshot.Status).
		Bool("final", snapshot.IsFinal()).
		Msg("Audit job upserted")

	if r.stats != nil {
		r.stats.RecordUpsert()
		r.stats.SetNonFinalJobs(len(r.NonFinal()))
	}
	if r.events != nil {
		r.events.Publish(context.Background(), interfaces.Event{
			Type:    interfaces.EventJobUpserted,
			Payload: snapshot,
		})
	}

	return snapshot
}

// touch moves jobID to the head of the ordered view
func (r *Registry) touch(jobID string, isNew bool) {
	if isNew {
		r.order = append([]string{jobID}, r.order...)
		return
	}
	for i, id := range r.order {
		if id == jobID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.order = append([]string{jobID}, r.order...)
}

// Get returns a copy of the job record, if known.
func (r *Registry) Get(jobID string) (models.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return models.Job{}, false
	}
	return job.Clone(), true
}

// Jobs returns copies of all records, most-recently-touched first.
func (r *Registry) Jobs() []models.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.jobs[id].Clone())
	}
	return out
}

// NonFinal returns copies of all records whose status is not terminal,
// most-recently-touched first. This is the poller's target set.
func (r *Registry) NonFinal() []models.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Job
	for _, id := range r.order {
		if job := r.jobs[id]; !job.IsFinal() {
			out = append(out, job.Clone())
		}
	}
	return out
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// mergeJobs layers the new record on top of the existing one. A new
// non-null field replaces the prior value; an absent field never nulls out
// a previously known value.
func mergeJobs(existing, incoming models.Job) models.Job {
	merged := existing.Clone()

	if incoming.Status != "" {
		merged.Status = incoming.Status
	}
	if len(incoming.PartnerIDs) > 0 {
		merged.PartnerIDs = make([]string, len(incoming.PartnerIDs))
		copy(merged.PartnerIDs, incoming.PartnerIDs)
	}
	// Origin classifies how the job was created and never changes after
	// that; later fetches seeded with fallback origins must not clobber it.
	if merged.Origin == "" || merged.Origin == models.OriginUnknown {
		if incoming.Origin != "" {
			merged.Origin = incoming.Origin
		}
	}
	if incoming.RequestedBy != "" {
		merged.RequestedBy = incoming.RequestedBy
	}
	if incoming.CreatedAt != "" {
		merged.CreatedAt = incoming.CreatedAt
	}
	if incoming.CompletedAt != "" {
		merged.CompletedAt = incoming.CompletedAt
	}
	if incoming.Error != "" {
		merged.Error = incoming.Error
	}
	if incoming.Payload != nil {
		merged.Payload = incoming.Payload
	}
	if incoming.Result != nil {
		merged.Result = incoming.Result
	}
	if incoming.Raw != nil {
		merged.Raw = incoming.Raw
	}

	return merged
}
