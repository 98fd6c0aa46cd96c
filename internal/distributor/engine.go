// Package distributor runs the paged daily fee distribution. The Engine is
// synchronous and keeps no state of its own: the caller passes the current
// Progress in and persists it only when RunPage succeeds.
package distributor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

const (
	// DistributionWindow is the minimum time between two day openings.
	DistributionWindow = 24 * time.Hour

	// DefaultMaxInvestorsPerPage keeps a page well below per-call limits.
	DefaultMaxInvestorsPerPage = 50
)

// PageRequest is one crank call.
type PageRequest struct {
	PageIndex uint16
	Final     bool
	Investors []model.Investor
}

// PageResult describes the effects of a committed page.
type PageResult struct {
	Day           uint64
	PageIndex     uint16
	Final         bool
	Claimed       uint64 // quote claimed, page 0 only
	Allocation    uint64 // pre-cap investor allocation earned by this page
	Distributable uint64
	Distributed   uint64
	Withheld      uint64 // below-threshold payouts rolled into carry-over
	CapOverflow   uint64
	RoundingDust  uint64
	CreatorAmount uint64
	Payouts       []model.Payout
	Events        []model.Event
}

// Engine executes pages against a fixed policy and collaborator set.
type Engine struct {
	policy   model.Policy
	holdings Holdings
	fees     FeeSource
	oracle   LockedBalanceOracle
	ledger   Ledger

	maxInvestors int
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxInvestorsPerPage sets the page batch limit.
func WithMaxInvestorsPerPage(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxInvestors = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an Engine.
func New(policy model.Policy, holdings Holdings, fees FeeSource, oracle LockedBalanceOracle, ledger Ledger, opts ...Option) *Engine {
	e := &Engine{
		policy:       policy,
		holdings:     holdings,
		fees:         fees,
		oracle:       oracle,
		ledger:       ledger,
		maxInvestors: DefaultMaxInvestorsPerPage,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunPage processes one page of the current day.
//
// On success progress is replaced with the advanced state. On failure it is
// left untouched, except that a contaminated claim sets HasBaseFees. Ledger
// and fee source effects of a failed call must be discarded by the caller.
func (e *Engine) RunPage(ctx context.Context, progress *model.Progress, req PageRequest) (*PageResult, error) {
	now := e.now()
	ts := now.Unix()

	if err := e.checkBatch(req.Investors); err != nil {
		return nil, err
	}
	if err := checkGate(progress, req.PageIndex, ts); err != nil {
		return nil, err
	}
	if err := e.checkAccounts(ctx, req.Investors); err != nil {
		return nil, err
	}

	p := *progress
	res := &PageResult{PageIndex: req.PageIndex}

	if req.PageIndex == 0 {
		claimed, err := e.claim(ctx)
		if err != nil {
			if errors.ErrBaseFeesDetected.Is(err) {
				progress.HasBaseFees = true
				e.logger.Warn("base fees detected, distribution quarantined",
					zap.Uint64("day", progress.CurrentDay))
			}
			return nil, err
		}
		if err := openDay(&p, claimed, ts); err != nil {
			return nil, err
		}
		res.Claimed = claimed
		res.Events = append(res.Events, model.FeesClaimed{
			Day:       p.CurrentDay,
			Amount:    claimed,
			Timestamp: ts,
		})
	}

	final, err := resolveFinal(&p, req)
	if err != nil {
		return nil, err
	}
	res.Day = p.CurrentDay
	res.Final = final

	if err := e.settlePage(ctx, &p, req, now, res); err != nil {
		return nil, err
	}
	if final {
		if err := e.closeDay(ctx, &p, ts, res); err != nil {
			return nil, err
		}
	}

	*progress = p
	e.logger.Debug("page committed",
		zap.Uint64("day", res.Day),
		zap.Uint16("page", res.PageIndex),
		zap.Uint64("distributed", res.Distributed),
		zap.Bool("final", res.Final))
	return res, nil
}
