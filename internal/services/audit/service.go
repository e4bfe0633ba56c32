package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/parceirolabs/auditrecon/internal/interfaces"
	"github.com/parceirolabs/auditrecon/internal/metrics"
	"github.com/parceirolabs/auditrecon/internal/models"
	"github.com/parceirolabs/auditrecon/internal/partnerapi"
)

// ErrNoPartners is returned by TriggerBulk when the partner ID list is
// empty after trimming blanks and removing duplicates. The failure is
// local; no request reaches the backend.
var ErrNoPartners = errors.New("no partner IDs to audit")

// Default user-facing messages for generic failures, per operation.
const (
	fallbackTrigger   = "Failed to start the partner audit."
	fallbackFetch     = "Failed to fetch the audit job status."
	fallbackReprocess = "Failed to reprocess the audit job."
	fallbackCancel    = "Failed to cancel the audit job."
)

// Service dispatches audit operations against the partner backend and
// feeds every successful response through normalize+upsert into the
// registry. Failed operations never mutate the registry: a stale record is
// preferred over an erased one.
type Service struct {
	client    *partnerapi.Client
	registry  *Registry
	tokens    interfaces.TokenStore
	navigator interfaces.Navigator
	events    interfaces.EventService
	stats     *metrics.Collector
	logger    arbor.ILogger
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithNavigator sets the navigation collaborator invoked on auth expiry.
func WithNavigator(navigator interfaces.Navigator) ServiceOption {
	return func(s *Service) {
		s.navigator = navigator
	}
}

// WithServiceMetrics sets the metrics collector.
func WithServiceMetrics(stats *metrics.Collector) ServiceOption {
	return func(s *Service) {
		s.stats = stats
	}
}

// NewService creates the action dispatcher.
func NewService(client *partnerapi.Client, registry *Registry, tokens interfaces.TokenStore, events interfaces.EventService, logger arbor.ILogger, opts ...ServiceOption) *Service {
	s := &Service{
		client:   client,
		registry: registry,
		tokens:   tokens,
		events:   events,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the job registry backing this dispatcher.
func (s *Service) Registry() *Registry {
	return s.registry
}

// TriggerIndividual starts an audit job for a single partner and tracks it.
func (s *Service) TriggerIndividual(ctx context.Context, partnerID, requestedBy string) (models.Job, error) {
	raw, err := s.client.TriggerAudit(ctx, partnerID, requestedBy)
	if err != nil {
		return models.Job{}, s.fail(err, OpTriggerIndividual, fallbackTrigger)
	}

	return s.applyResponse(raw, models.Job{
		Origin:      models.OriginIndividual,
		PartnerIDs:  []string{partnerID},
		RequestedBy: requestedBy,
	})
}

// TriggerBulk starts one audit job covering multiple partners. The partner
// list is trimmed of blanks and deduplicated (order-preserving) before the
// request; an empty result fails locally with ErrNoPartners.
func (s *Service) TriggerBulk(ctx context.Context, partnerIDs []string, requestedBy string) (models.Job, error) {
	cleaned := dedupePartnerIDs(partnerIDs)
	if len(cleaned) == 0 {
		return models.Job{}, ErrNoPartners
	}

	raw, err := s.client.TriggerBulkAudit(ctx, cleaned, requestedBy)
	if err != nil {
		return models.Job{}, s.fail(err, OpTriggerBulk, fallbackTrigger)
	}

	return s.applyResponse(raw, models.Job{
		Origin:      models.OriginBulk,
		PartnerIDs:  cleaned,
		RequestedBy: requestedBy,
	})
}

// FetchStatus re-fetches a job's current representation. Origin falls back
// to bulk when the backend omits it; an origin already known to the
// registry survives the merge.
func (s *Service) FetchStatus(ctx context.Context, jobID string) (models.Job, error) {
	raw, err := s.client.GetAuditJob(ctx, jobID)
	if err != nil {
		return models.Job{}, s.fail(err, OpFetchStatus, fallbackFetch)
	}

	return s.applyResponse(raw, models.Job{
		JobID:  jobID,
		Origin: models.OriginBulk,
	})
}

// Reprocess restarts a job. Defaults are seeded from the last known
// registry record so fields the backend omits in the reprocess response
// fall back to the previously observed values rather than to generic
// defaults.
func (s *Service) Reprocess(ctx context.Context, jobID string) (models.Job, error) {
	raw, err := s.client.ReprocessAuditJob(ctx, jobID)
	if err != nil {
		return models.Job{}, s.fail(err, OpReprocess, fallbackReprocess)
	}

	return s.applyResponse(raw, s.knownDefaults(jobID))
}

// Cancel requests cancellation of a job, with the same default sourcing as
// Reprocess. Cancellation may complete asynchronously on the backend, so a
// successful cancel is always followed by one immediate status fetch to
// capture the authoritative terminal state.
func (s *Service) Cancel(ctx context.Context, jobID string) (models.Job, error) {
	raw, err := s.client.CancelAuditJob(ctx, jobID)
	if err != nil {
		return models.Job{}, s.fail(err, OpCancel, fallbackCancel)
	}

	job, err := s.applyResponse(raw, s.knownDefaults(jobID))
	if err != nil {
		return models.Job{}, err
	}

	refreshed, err := s.FetchStatus(ctx, jobID)
	if err != nil {
		// The cancel itself succeeded; report that state and leave the
		// poller to pick up the terminal status on its next tick.
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Follow-up status fetch after cancel failed")
		return job, nil
	}

	return refreshed, nil
}

// applyResponse normalizes a backend payload and upserts the result.
// A payload with no job identifier aborts the upsert; the registry is
// never touched with unidentifiable records.
func (s *Service) applyResponse(raw models.RawJob, defaults models.Job) (models.Job, error) {
	job, err := models.Normalize(raw, defaults)
	if err != nil {
		return models.Job{}, fmt.Errorf("normalize audit response: %w", err)
	}
	return s.registry.Upsert(job), nil
}

// knownDefaults seeds normalization defaults from the registry's last
// known record for the job, if any.
func (s *Service) knownDefaults(jobID string) models.Job {
	if current, ok := s.registry.Get(jobID); ok {
		return models.Job{
			JobID:       current.JobID,
			Status:      current.Status,
			PartnerIDs:  current.PartnerIDs,
			Origin:      current.Origin,
			RequestedBy: current.RequestedBy,
		}
	}
	return models.Job{JobID: jobID}
}

// fail classifies a dispatcher error, performs the auth-expiry side
// effects, and returns the classified failure.
func (s *Service) fail(err error, op Op, fallback string) *Failure {
	failure := Classify(err, op, fallback)

	s.logger.Warn().
		Err(err).
		Str("op", string(op)).
		Str("kind", string(failure.Kind)).
		Msg("Audit operation failed")

	if s.stats != nil {
		s.stats.RecordDispatchFailure(string(failure.Kind))
	}

	if failure.Kind == FailureAuthExpired {
		s.tokens.Clear()
		if s.navigator != nil {
			s.navigator.RedirectToLogin()
		}
		if s.events != nil {
			s.events.Publish(context.Background(), interfaces.Event{
				Type:    interfaces.EventAuthExpired,
				Payload: failure.Message,
			})
		}
	}

	return failure
}

// dedupePartnerIDs trims whitespace, drops blanks, and removes exact
// duplicates while preserving first-seen order. Matching is
// case-sensitive: "A" and "a" are distinct partners.
func dedupePartnerIDs(partnerIDs []string) []string {
	seen := make(map[string]struct{}, len(partnerIDs))
	out := make([]string, 0, len(partnerIDs))
	for _, id := range partnerIDs {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
