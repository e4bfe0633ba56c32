package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/parceirolabs/auditrecon/internal/common"
	"github.com/parceirolabs/auditrecon/internal/interfaces"
	"github.com/parceirolabs/auditrecon/internal/metrics"
	"github.com/parceirolabs/auditrecon/internal/models"
	"github.com/parceirolabs/auditrecon/internal/partnerapi"
	"github.com/parceirolabs/auditrecon/internal/services/audit"
	"github.com/parceirolabs/auditrecon/internal/services/events"
	"github.com/parceirolabs/auditrecon/internal/services/session"
)

// stringList is a custom flag type that allows repeating a flag
type stringList []string

func (s *stringList) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

var (
	// Command-line flags
	configFiles  stringList // Multiple -config flags supported
	partnerIDs   stringList // Repeatable -partner flags
	bulkPartners = flag.String("partners", "", "Comma-separated partner IDs for one bulk audit job")
	jobIDs       stringList // Repeatable -job flags for manual status lookups
	reprocessID  = flag.String("reprocess", "", "Reprocess an existing audit job by ID")
	cancelID     = flag.String("cancel", "", "Cancel an existing audit job by ID")
	requestedBy  = flag.String("requested-by", "", "Requester recorded on triggered jobs")
	runOnce      = flag.Bool("once", false, "Poll until all tracked jobs are final, then exit")
	showVersion  = flag.Bool("version", false, "Print version information")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Var(&partnerIDs, "partner", "Trigger an individual audit for this partner ID (repeatable)")
	flag.Var(&jobIDs, "job", "Fetch status for this job ID (repeatable)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("AuditRecon version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("auditrecon.toml"); err == nil {
			configFiles = append(configFiles, "auditrecon.toml")
		}
	}

	// Startup order: config -> logger -> banner
	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration validation failed")
		os.Exit(1)
	}

	logger.Info().
		Strs("config_files", configFiles).
		Str("backend", config.Backend.BaseURL).
		Str("poll_interval", config.Poller.Interval).
		Msg("Application configuration loaded")

	// Wire the engine
	collector := metrics.NewCollector()
	eventService := events.NewService(logger)
	defer eventService.Close()

	tokens := session.NewService(config.Session.Token, logger)
	if tokens.Token() == "" {
		logger.Warn().Msg("No session token configured; backend requests will be unauthenticated")
	}

	client := partnerapi.NewClient(tokens,
		partnerapi.WithBaseURL(config.Backend.BaseURL),
		partnerapi.WithHTTPClient(&http.Client{Timeout: config.BackendTimeout()}),
		partnerapi.WithRateLimit(config.Backend.RateLimit),
		partnerapi.WithUserAgent(config.Backend.UserAgent),
		partnerapi.WithLogger(logger),
	)

	registry := audit.NewRegistry(eventService, logger, audit.WithRegistryMetrics(collector))
	dispatcher := audit.NewService(client, registry, tokens, eventService, logger,
		audit.WithNavigator(&loginPrompt{loginURL: config.Session.LoginURL, logger: logger}),
		audit.WithServiceMetrics(collector),
	)
	poller := audit.NewPoller(registry, dispatcher, logger,
		audit.WithInterval(config.PollInterval()),
		audit.WithConcurrency(config.Poller.Concurrency),
		audit.WithPollerEvents(eventService),
		audit.WithPollerMetrics(collector),
	)

	// Log every job transition as it lands in the registry
	eventService.Subscribe(interfaces.EventJobUpserted, logJobUpsert)

	// Optional Prometheus listener
	if config.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", config.Metrics.Port)
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			logger.Info().Str("addr", addr).Msg("Metrics listener started")
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	ctx := context.Background()

	// Run the operations requested on the command line
	runInitialActions(ctx, dispatcher)

	if err := poller.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start audit poller")
		os.Exit(1)
	}
	defer poller.Stop()

	if *runOnce {
		waitForConvergence(registry, config.PollInterval())
		printSummary(registry)
		return
	}

	// Daemon mode: poll until interrupted
	logger.Info().Msg("Polling for audit job updates - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
	printSummary(registry)
}

// runInitialActions dispatches the trigger/lookup/reprocess/cancel
// operations requested via flags. Failures are reported and skipped; the
// engine keeps tracking whatever did register.
func runInitialActions(ctx context.Context, dispatcher *audit.Service) {
	for _, partnerID := range partnerIDs {
		job, err := dispatcher.TriggerIndividual(ctx, partnerID, *requestedBy)
		if err != nil {
			logger.Error().Err(err).Str("partner_id", partnerID).Msg("Failed to trigger audit")
			continue
		}
		logger.Info().Str("job_id", job.JobID).Str("partner_id", partnerID).Msg("Audit triggered")
	}

	if *bulkPartners != "" {
		ids := strings.Split(*bulkPartners, ",")
		job, err := dispatcher.TriggerBulk(ctx, ids, *requestedBy)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to trigger bulk audit")
		} else {
			logger.Info().Str("job_id", job.JobID).Int("partners", len(job.PartnerIDs)).Msg("Bulk audit triggered")
		}
	}

	for _, jobID := range jobIDs {
		if _, err := dispatcher.FetchStatus(ctx, jobID); err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to fetch job status")
		}
	}

	if *reprocessID != "" {
		if _, err := dispatcher.Reprocess(ctx, *reprocessID); err != nil {
			logger.Error().Err(err).Str("job_id", *reprocessID).Msg("Failed to reprocess job")
		}
	}

	if *cancelID != "" {
		if _, err := dispatcher.Cancel(ctx, *cancelID); err != nil {
			logger.Error().Err(err).Str("job_id", *cancelID).Msg("Failed to cancel job")
		}
	}
}

// waitForConvergence blocks until the registry holds no non-final jobs
func waitForConvergence(registry *audit.Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		remaining := registry.NonFinal()
		if len(remaining) == 0 {
			logger.Info().Int("jobs", registry.Len()).Msg("All tracked jobs reached a final status")
			return
		}
		logger.Debug().Int("remaining", len(remaining)).Msg("Waiting for jobs to settle")
	}
}

// printSummary logs the final state of every tracked job
func printSummary(registry *audit.Registry) {
	for _, job := range registry.Jobs() {
		logger.Info().
			Str("job_id", job.JobID).
			Str("status", models.StatusLabel(job.Status)).
			Str("origin", job.Origin).
			Int("partners", len(job.PartnerIDs)).
			Msg("Job summary")
	}
}

// logJobUpsert logs registry transitions published on the event bus
func logJobUpsert(ctx context.Context, event interfaces.Event) error {
	job, ok := event.Payload.(models.Job)
	if !ok {
		return nil
	}
	logger.Info().
		Str("job_id", job.JobID).
		Str("status", job.Status).
		Bool("final", job.IsFinal()).
		Msg("Job updated")
	return nil
}

// loginPrompt implements the navigation collaborator for the CLI: there is
// no page to redirect, so it tells the operator where to re-authenticate.
type loginPrompt struct {
	loginURL string
	logger   arbor.ILogger
}

func (n *loginPrompt) RedirectToLogin() {
	if n.loginURL != "" {
		n.logger.Warn().Str("login_url", n.loginURL).Msg("Session expired - re-authenticate and restart with a fresh token")
		return
	}
	n.logger.Warn().Msg("Session expired - re-authenticate and restart with a fresh token")
}
