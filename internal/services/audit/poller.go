package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/parceirolabs/auditrecon/internal/interfaces"
	"github.com/parceirolabs/auditrecon/internal/metrics"
)

const (
	// DefaultPollInterval is the fixed interval between poll ticks.
	DefaultPollInterval = 5 * time.Second

	// DefaultPollConcurrency bounds the number of status fetches in
	// flight during one tick.
	DefaultPollConcurrency = 8
)

// Poller periodically re-fetches status for every non-final job in the
// registry. It is an explicit scheduler owned by the caller: Start/Stop
// control the interval loop, and Tick is exported so tests can single-step
// poll cycles deterministically.
//
// Within one tick all fetches run concurrently (bounded by the concurrency
// limit); each per-job failure is classified and logged independently, so
// one failing job never stops the rest of the tick. There is no backoff
// and no retry cap: a non-final job is polled at the fixed interval until
// it settles. Overlapping in-flight fetches for the same job across ticks
// are allowed; the registry merge keeps late responses safe to apply.
type Poller struct {
	registry    *Registry
	dispatcher  *Service
	events      interfaces.EventService
	stats       *metrics.Collector
	logger      arbor.ILogger
	interval    time.Duration
	concurrency int

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// PollerOption configures the Poller.
type PollerOption func(*Poller)

// WithInterval sets the poll interval.
func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithConcurrency sets the per-tick fetch concurrency limit.
func WithConcurrency(concurrency int) PollerOption {
	return func(p *Poller) {
		if concurrency > 0 {
			p.concurrency = concurrency
		}
	}
}

// WithPollerEvents sets the event bus the poller publishes cycle events to.
func WithPollerEvents(events interfaces.EventService) PollerOption {
	return func(p *Poller) {
		p.events = events
	}
}

// WithPollerMetrics sets the metrics collector.
func WithPollerMetrics(stats *metrics.Collector) PollerOption {
	return func(p *Poller) {
		p.stats = stats
	}
}

// NewPoller creates a poller over the given registry and dispatcher.
func NewPoller(registry *Registry, dispatcher *Service, logger arbor.ILogger, opts ...PollerOption) *Poller {
	p := &Poller{
		registry:    registry,
		dispatcher:  dispatcher,
		logger:      logger,
		interval:    DefaultPollInterval,
		concurrency: DefaultPollConcurrency,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start begins the interval loop. Ticks with an empty non-final set are
// no-ops, so the loop runs for the life of the session and the engine
// moves between idle and polling purely on registry contents.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller already running")
	}

	runner := cron.New()
	if _, err := runner.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.Tick(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule poll tick: %w", err)
	}

	runner.Start()
	p.cron = runner
	p.running = true

	p.logger.Info().
		Str("interval", p.interval.String()).
		Int("concurrency", p.concurrency).
		Msg("Audit poller started")

	return nil
}

// Stop tears down the interval loop. In-flight fetches are not cancelled;
// responses that resolve after Stop still upsert into the registry.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cron.Stop()
	p.cron = nil
	p.running = false

	p.logger.Info().Msg("Audit poller stopped")
}

// IsRunning returns true while the interval loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Tick runs one poll cycle: snapshot the non-final set and fetch status
// for every job in it concurrently. Returns the number of jobs fetched.
func (p *Poller) Tick(ctx context.Context) int {
	targets := p.registry.NonFinal()
	if len(targets) == 0 {
		return 0
	}

	p.logger.Debug().
		Int("jobs", len(targets)).
		Msg("Poll tick")

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, job := range targets {
		jobID := job.JobID
		g.Go(func() error {
			// Per-job failures are classified and logged by the
			// dispatcher; the job keeps its last known state and stays
			// in the target set for the next tick.
			_, _ = p.dispatcher.FetchStatus(ctx, jobID)
			return nil
		})
	}
	g.Wait()

	remaining := len(p.registry.NonFinal())

	if p.stats != nil {
		p.stats.RecordPollCycle(len(targets))
		p.stats.SetNonFinalJobs(remaining)
	}
	if p.events != nil {
		p.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventPollCompleted,
			Payload: remaining,
		})
	}

	return len(targets)
}
