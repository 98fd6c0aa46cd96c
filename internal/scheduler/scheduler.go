package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"FeeRouter/internal/crank"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/notifier"
)

// Cranker is the part of crank.Runner the scheduler drives.
type Cranker interface {
	RunDay(ctx context.Context) (*crank.DayReport, error)
	Status(ctx context.Context) (*crank.Status, error)
}

// Notifier delivers operator messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the crank on a cron schedule and answers operator commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Cranker
	Notifier Notifier
	Units    notifier.Units
	Logger   *zap.Logger
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. n may be nil when no chat is configured.
func NewScheduler(ctx context.Context, runner Cranker, n Notifier, units notifier.Units, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		Runner:   runner,
		Notifier: n,
		Units:    units,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// RegisterAll registers the crank task.
func (s *Scheduler) RegisterAll(crankCron string) error {
	if _, err := s.Cron.AddFunc(crankCron, s.crankTask); err != nil {
		return fmt.Errorf("register crank task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running crank to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunNow executes the crank task immediately.
func (s *Scheduler) RunNow() {
	s.crankTask()
}

// crankTask runs the day if its window is open. A closed window is the
// common case and stays quiet.
func (s *Scheduler) crankTask() {
	report, err := s.Runner.RunDay(s.Ctx)
	if err != nil {
		if errors.CategoryOf(err) == errors.CategoryGating {
			s.Logger.Debug("crank skipped", zap.Error(err))
		} else {
			s.Logger.Error("crank failed", zap.Error(err))
		}
		if report != nil && len(report.Pages) > 0 {
			s.trySend(notifier.FormatDayReport(s.Units, report))
		}
		if msg := notifier.FormatFailure(err); msg != "" {
			s.trySend(msg)
		}
		return
	}
	s.Logger.Info("crank completed",
		zap.Uint64("day", report.Day),
		zap.Int("pages", len(report.Pages)),
		zap.Uint64("distributed", report.Distributed),
		zap.Uint64("creator", report.CreatorAmount))
	s.trySend(notifier.FormatDayReport(s.Units, report))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	// Telegram appends the bot name in groups: /progress@feerouter_bot.
	command, _, _ = strings.Cut(command, "@")
	switch command {
	case "/progress", "查看进度":
		status, err := s.Runner.Status(ctx)
		if err != nil {
			return fmt.Sprintf("❌ status: %v", err)
		}
		return notifier.FormatStatus(s.Units, status)
	case "/policy", "查看策略":
		status, err := s.Runner.Status(ctx)
		if err != nil {
			return fmt.Sprintf("❌ status: %v", err)
		}
		return notifier.FormatPolicy(s.Units, status.Policy)
	case "/crank":
		report, err := s.Runner.RunDay(ctx)
		if err != nil {
			if errors.CategoryOf(err) == errors.CategoryGating {
				return fmt.Sprintf("⏸ %v", err)
			}
			return notifier.FormatFailure(err)
		}
		return notifier.FormatDayReport(s.Units, report)
	default:
		return notifier.Help()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}
