package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockDog/internal/dashboard"
	"StockDog/internal/logging"
	"StockDog/internal/notifier"
	"StockDog/internal/quotesync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Syncer is the quote sync engine as seen by the scheduler.
type Syncer interface {
	Tick(ctx context.Context) quotesync.Result
	FetchNow(ctx context.Context) quotesync.Result
	State() quotesync.State
	LastResult() quotesync.Result
	Provider() string
}

type Overviewer interface {
	Overview() dashboard.Overview
}

type Sizer interface {
	Len() int
}

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Engine    Syncer
	Dashboard Overviewer
	Registry  Sizer
	Notifier  Sender // nil disables digests
	Timeout   time.Duration
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler. Each cron job runs behind
// cron.Recover so one panicking run does not stop the schedule.
func NewScheduler(ctx context.Context, engine Syncer, dash Overviewer, reg Sizer, sender Sender) *Scheduler {
	logger := logging.NewCronLogger()
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		Engine:    engine,
		Dashboard: dash,
		Registry:  reg,
		Notifier:  sender,
		Timeout:   10 * time.Second,
		Ctx:       ctx,
	}
}

// RegisterAll registers the periodic quote sync and the daily digest.
func (s *Scheduler) RegisterAll(interval time.Duration, digestCron string) error {
	if interval <= 0 {
		return fmt.Errorf("register sync task: interval must be positive")
	}
	if _, err := s.Cron.AddFunc(fmt.Sprintf("@every %s", interval), s.syncTask); err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}
	if s.Notifier != nil && digestCron != "" {
		if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
			return fmt.Errorf("register digest task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow fetches quotes immediately, queueing behind a request in flight.
func (s *Scheduler) RunNow() quotesync.Result {
	ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
	defer cancel()
	return s.Engine.FetchNow(ctx)
}

func (s *Scheduler) syncTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
	defer cancel()
	res := s.Engine.Tick(ctx)
	if res.Status == quotesync.StatusBusy {
		log.Debug().Msg("sync tick skipped, request in flight")
	}
}

func (s *Scheduler) digestTask() {
	log.Info().Msg("sending portfolio digest")
	s.trySend(notifier.FormatOverview(s.Dashboard.Overview(), time.Now()))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if f := strings.Fields(command); len(f) > 0 {
		cmd = strings.ToLower(f[0])
	}
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/status@StockDogBot"
	}
	switch cmd {
	case "/portfolio":
		return notifier.FormatOverview(s.Dashboard.Overview(), time.Now())
	case "/refresh":
		ctx, cancel := context.WithTimeout(ctx, s.Timeout)
		defer cancel()
		return notifier.FormatRefresh(s.Engine.FetchNow(ctx))
	case "/status":
		return notifier.FormatStatus(s.Engine.State(), s.Engine.Provider(), s.Registry.Len(), s.Engine.LastResult())
	default:
		return "Available commands:\n• /portfolio\n• /refresh\n• /status"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
