package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"FeeRouter/internal/crank"
	"FeeRouter/internal/distributor"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/notifier"
)

type mockCranker struct{ mock.Mock }

func (m *mockCranker) RunDay(ctx context.Context) (*crank.DayReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*crank.DayReport)
	return r, args.Error(1)
}

func (m *mockCranker) Status(ctx context.Context) (*crank.Status, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*crank.Status)
	return s, args.Error(1)
}

type recordingNotifier struct{ sent []string }

func (n *recordingNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.sent = append(n.sent, text)
	return nil
}

func newTestScheduler(c Cranker, n Notifier) *Scheduler {
	return NewScheduler(context.Background(), c, n, notifier.Units{Symbol: "USDC", Decimals: 6}, zap.NewNop())
}

func closedDay() *crank.DayReport {
	return &crank.DayReport{
		Day:           1,
		Pages:         []*distributor.PageResult{{Final: true}},
		Claimed:       1_000_000,
		CreatorAmount: 1_000_000,
		Closed:        true,
	}
}

func TestCrankTaskReportsDay(t *testing.T) {
	c := &mockCranker{}
	c.On("RunDay", mock.Anything).Return(closedDay(), nil).Once()
	n := &recordingNotifier{}

	newTestScheduler(c, n).RunNow()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "day 1")
	c.AssertExpectations(t)
}

func TestCrankTaskQuietWhenWindowClosed(t *testing.T) {
	c := &mockCranker{}
	c.On("RunDay", mock.Anything).Return(&crank.DayReport{}, errors.ErrWindowNotElapsed.New("wait")).Once()
	n := &recordingNotifier{}

	newTestScheduler(c, n).RunNow()
	assert.Empty(t, n.sent)
}

func TestCrankTaskAlertsQuarantine(t *testing.T) {
	c := &mockCranker{}
	c.On("RunDay", mock.Anything).Return(&crank.DayReport{}, errors.ErrBaseFeesDetected.New("claimed 5 base")).Once()
	n := &recordingNotifier{}

	newTestScheduler(c, n).RunNow()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "quarantined")
}

func TestCrankTaskWithoutNotifier(t *testing.T) {
	c := &mockCranker{}
	c.On("RunDay", mock.Anything).Return(closedDay(), nil).Once()
	assert.NotPanics(t, newTestScheduler(c, nil).RunNow)
}

func TestHandleCommand(t *testing.T) {
	c := &mockCranker{}
	c.On("Status", mock.Anything).Return(&crank.Status{
		Policy:   model.Policy{MaxInvestorShareBps: 5_000},
		Progress: model.Progress{CurrentDay: 7},
	}, nil)
	c.On("RunDay", mock.Anything).Return(&crank.DayReport{}, errors.ErrAllPagesProcessed.New("closed")).Once()
	s := newTestScheduler(c, nil)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/progress"), "Day: 7")
	assert.Contains(t, s.HandleCommand(ctx, "/progress@feerouter_bot"), "Day: 7")
	assert.Contains(t, s.HandleCommand(ctx, "/policy"), "50%")
	assert.Contains(t, s.HandleCommand(ctx, "/crank"), "all pages processed")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/crank")
}

func TestRegisterAllRejectsBadSpec(t *testing.T) {
	s := newTestScheduler(&mockCranker{}, nil)
	assert.Error(t, s.RegisterAll("not a cron"))
	assert.NoError(t, s.RegisterAll("0 */10 * * * *"))
}
