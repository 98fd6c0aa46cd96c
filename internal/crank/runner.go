// Package crank hosts the distribution engine. A Runner serializes crank
// calls and runs each page inside one store transaction, so progress,
// balances, the transfer journal and events commit together.
package crank

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"FeeRouter/internal/distributor"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/recorder"
	"FeeRouter/internal/store"
	"FeeRouter/internal/treasury"
	"FeeRouter/internal/vesting"
)

// Runner executes crank calls against the crank database.
type Runner struct {
	mu sync.Mutex

	store     *store.Store
	recorder  recorder.Recorder
	oracle    distributor.LockedBalanceOracle
	registry  vesting.Registry
	programID solana.PublicKey

	maxInvestors int
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxInvestorsPerPage sets how many investors go into one page.
func WithMaxInvestorsPerPage(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxInvestors = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner. The oracle prices locked balances and the
// registry supplies the ordered investor list paged through each day.
func NewRunner(st *store.Store, rec recorder.Recorder, oracle distributor.LockedBalanceOracle,
	registry vesting.Registry, programID solana.PublicKey, opts ...Option) *Runner {
	r := &Runner{
		store:        st,
		recorder:     rec,
		oracle:       oracle,
		registry:     registry,
		programID:    programID,
		maxInvestors: distributor.DefaultMaxInvestorsPerPage,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunPage executes one explicit page request.
func (r *Runner) RunPage(ctx context.Context, req distributor.PageRequest) (*distributor.PageResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runPage(ctx, req)
}

func (r *Runner) runPage(ctx context.Context, req distributor.PageRequest) (*distributor.PageResult, error) {
	runID := uuid.New()
	log := r.logger.With(zap.String("run_id", runID.String()), zap.Uint16("page", req.PageIndex))

	var (
		res         *distributor.PageResult
		quarantined bool
	)
	err := r.store.Update(ctx, func(q store.Querier) error {
		policy, err := store.LoadPolicy(ctx, q)
		if err != nil {
			return err
		}
		progress, err := store.LoadProgress(ctx, q)
		if err != nil {
			return err
		}
		pos, err := treasury.LoadPosition(ctx, q)
		if err != nil {
			return err
		}
		holdings, _, err := treasury.DeriveHoldings(r.programID, pos.BaseMint, pos.QuoteMint)
		if err != nil {
			return err
		}

		ledger := treasury.NewLedger(q, runID.String())
		if err := openDestinations(ctx, ledger, policy.QuoteMint, req.Investors); err != nil {
			return err
		}
		engine := distributor.New(policy, holdings,
			treasury.NewFeeSource(q, ledger, holdings), r.oracle, ledger,
			distributor.WithMaxInvestorsPerPage(r.maxInvestors),
			distributor.WithClock(r.now),
			distributor.WithLogger(log))

		res, err = engine.RunPage(ctx, &progress, req)
		if err != nil {
			quarantined = progress.HasBaseFees && errors.ErrBaseFeesDetected.Is(err)
			return err
		}
		if err := store.MarkPaid(ctx, q, res.Day, streamsOf(req.Investors)); err != nil {
			return err
		}
		if err := store.SaveProgress(ctx, q, progress); err != nil {
			return err
		}
		return r.recorder.Record(ctx, q, runID, res.Events)
	})
	if err != nil {
		if quarantined {
			r.quarantine(ctx, log)
		}
		log.Warn("page rejected", zap.Error(err), zap.String("category", string(errors.CategoryOf(err))))
		return nil, err
	}

	log.Info("page committed",
		zap.Uint64("day", res.Day),
		zap.Uint64("distributed", res.Distributed),
		zap.Uint64("creator", res.CreatorAmount),
		zap.Bool("final", res.Final))
	return res, nil
}

// quarantine persists the contamination marker after the page rolled back.
func (r *Runner) quarantine(ctx context.Context, log *zap.Logger) {
	err := r.store.Update(ctx, func(q store.Querier) error {
		progress, err := store.LoadProgress(ctx, q)
		if err != nil {
			return err
		}
		progress.HasBaseFees = true
		return store.SaveProgress(ctx, q, progress)
	})
	if err != nil {
		log.Error("persist quarantine marker", zap.Error(err))
		return
	}
	log.Warn("distribution quarantined, base fees in claim")
}

// openDestinations creates missing quote accounts for a batch. Existing
// accounts are left as they are, whatever their mint.
func openDestinations(ctx context.Context, ledger *treasury.Ledger, quoteMint solana.PublicKey, investors []model.Investor) error {
	for _, inv := range investors {
		err := ledger.OpenAccount(ctx, inv.Destination, quoteMint, inv.Destination)
		if err != nil && !errors.ErrDuplicate.Is(err) {
			return err
		}
	}
	return nil
}

func streamsOf(investors []model.Investor) []solana.PublicKey {
	out := make([]solana.PublicKey, len(investors))
	for i, inv := range investors {
		out[i] = inv.Stream
	}
	return out
}
