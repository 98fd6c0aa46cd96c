package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"FeeRouter/internal/api"
	"FeeRouter/internal/config"
	"FeeRouter/internal/crank"
	"FeeRouter/internal/distributor"
	"FeeRouter/internal/notifier"
	"FeeRouter/internal/recorder"
	"FeeRouter/internal/scheduler"
	"FeeRouter/internal/store"
	"FeeRouter/internal/vesting"
)

const usage = `usage: feerouter <command> [flags]

commands:
  init       configure the policy and register the fee position
  run        crank on schedule, serve HTTP and Telegram commands
  crank      run the current day now
  accrue     record position fees (-base, -quote)
  sweep-base move stranded base fees off the position to lift a quarantine
  status     print distribution progress
`

// oracle is both the locked balance source and the investor registry.
type oracle interface {
	distributor.LockedBalanceOracle
	vesting.Registry
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	runner  *crank.Runner
	streams *vesting.FileOracle // nil when streams come from the vesting API
	units   notifier.Units
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "init":
		err = a.init(ctx)
	case "run":
		err = a.run(ctx)
	case "crank":
		err = a.crank(ctx)
	case "accrue":
		err = a.accrue(ctx, args)
	case "sweep-base":
		err = a.sweepBase(ctx)
	case "status":
		err = a.status(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd+" failed", zap.Error(err))
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	programID, err := cfg.ProgramID()
	if err != nil {
		return nil, err
	}

	var (
		o  oracle
		fo *vesting.FileOracle
	)
	if cfg.Vesting.BaseURL != "" {
		o = vesting.NewHTTPOracle(cfg.Vesting.BaseURL, cfg.Vesting.APIKey, cfg.Proxy)
	} else {
		if fo, err = vesting.LoadFile(cfg.Vesting.StreamsFile); err != nil {
			return nil, fmt.Errorf("load streams: %w", err)
		}
		o = fo
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(cfg.Database.SQLitePath, logger)
	if err != nil {
		return nil, err
	}

	var rec recorder.Recorder = recorder.NewSQLiteRecorder(logger)
	if cfg.Database.DisableEvents {
		rec = recorder.NewNoopRecorder()
	}

	runner := crank.NewRunner(st, rec, o, o, programID,
		crank.WithMaxInvestorsPerPage(cfg.Engine.MaxInvestorsPerPage),
		crank.WithLogger(logger))
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		runner:  runner,
		streams: fo,
		units:   notifier.Units{Symbol: cfg.Display.QuoteSymbol, Decimals: cfg.Display.QuoteDecimals},
	}, nil
}

func (a *app) init(ctx context.Context) error {
	policy, err := a.cfg.PolicyParams()
	if err != nil {
		return err
	}
	if policy.BaselineAllocation == 0 && a.streams != nil {
		if policy.BaselineAllocation, err = a.streams.Total(); err != nil {
			return err
		}
		a.logger.Info("baseline allocation taken from streams file",
			zap.Uint64("baseline", policy.BaselineAllocation))
	}
	position, err := a.cfg.PositionParams()
	if err != nil {
		return err
	}
	setup, err := a.runner.Init(ctx, crank.InitParams{
		Policy:         policy,
		Position:       position,
		TotalInvestors: a.cfg.Engine.TotalInvestors,
	})
	if err != nil {
		return err
	}
	a.logger.Info("position registered",
		zap.Stringer("position", setup.Position.Address),
		zap.Stringer("owner", setup.Position.Owner),
		zap.Stringer("quote_holding", setup.Holdings.Quote),
		zap.Stringer("base_holding", setup.Holdings.Base))
	return nil
}

func (a *app) run(ctx context.Context) error {
	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if a.cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.logger)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, a.runner, n, a.units, a.logger)
	if err := sched.RegisterAll(a.cfg.Schedule.CrankCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		a.logger.Info("telegram polling started")
	}

	router := api.NewRouter(api.NewHandler(a.runner, a.units, a.logger))
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server", zap.Error(err))
		}
	}()
	a.logger.Info("feerouter running", zap.String("addr", a.cfg.HTTP.Addr), zap.String("crank_cron", a.cfg.Schedule.CrankCron))

	if os.Getenv("RUN_ON_START") == "true" {
		go sched.RunNow()
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) crank(ctx context.Context) error {
	report, err := a.runner.RunDay(ctx)
	if report != nil && len(report.Pages) > 0 {
		fmt.Print(notifier.FormatDayReport(a.units, report))
	}
	return err
}

func (a *app) accrue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("accrue", flag.ContinueOnError)
	base := fs.Uint64("base", 0, "base currency fees earned")
	quote := fs.Uint64("quote", 0, "quote currency fees earned")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pos, err := a.runner.Accrue(ctx, *base, *quote)
	if err != nil {
		return err
	}
	a.logger.Info("fees accrued",
		zap.Uint64("accrued_base", pos.AccruedBase),
		zap.Uint64("accrued_quote", pos.AccruedQuote))
	return nil
}

func (a *app) sweepBase(ctx context.Context) error {
	swept, err := a.runner.ClearBase(ctx)
	if err != nil {
		return err
	}
	if swept == 0 {
		a.logger.Info("no base fees accrued, nothing to sweep")
		return nil
	}
	a.logger.Info("base fees swept, next crank opens a new day", zap.Uint64("amount", swept))
	return nil
}

func (a *app) status(ctx context.Context) error {
	s, err := a.runner.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Print(notifier.FormatStatus(a.units, s))
	fmt.Print(notifier.FormatPolicy(a.units, s.Policy))
	return nil
}
