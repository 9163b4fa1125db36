package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-trader/internal/broker"
	"condor-trader/internal/config"
	"condor-trader/internal/models"
	"condor-trader/internal/store"
)

var testNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func testMonitor(b broker.Broker) *Monitor {
	m := NewMonitor(config.MonitorConfig{
		MaxOrderAge:   60 * time.Second,
		BrokerTimeout: time.Second,
		HistoryKeep:   20,
	}, b, nil, zerolog.Nop())
	m.SetClock(func() time.Time { return testNow })
	return m
}

func workingOrder(id, symbol string, age time.Duration) models.TrackedOrder {
	return models.TrackedOrder{
		ID:          id,
		Symbol:      symbol,
		Side:        models.SideSell,
		Quantity:    1,
		OrderType:   "limit",
		SubmittedAt: testNow.Add(-age),
		Status:      models.StatusAccepted,
	}
}

func TestSweep_CancelsOnlyOverAgeOrders(t *testing.T) {
	b := broker.NewPaperBroker()
	b.SeedOrder(workingOrder("young", "SPY", 30*time.Second))
	b.SeedOrder(workingOrder("old", "QQQ", 90*time.Second))

	result, err := testMonitor(b).Sweep(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Checked)
	require.Len(t, result.Cancelled, 1)
	assert.Equal(t, "old", result.Cancelled[0].OrderID)
	assert.Equal(t, 90*time.Second, result.Cancelled[0].AgeAtCancel)
	assert.Empty(t, result.Failures)

	status, ok := b.OrderStatus("old")
	require.True(t, ok)
	assert.Equal(t, models.StatusCancelled, status)

	status, _ = b.OrderStatus("young")
	assert.Equal(t, models.StatusAccepted, status)
}

func TestSweep_AgeExactlyAtThresholdIsKept(t *testing.T) {
	b := broker.NewPaperBroker()
	b.SeedOrder(workingOrder("edge", "SPY", 60*time.Second))

	result, err := testMonitor(b).Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, result.Cancelled)
}

func TestSweep_Idempotent(t *testing.T) {
	b := broker.NewPaperBroker()
	b.SeedOrder(workingOrder("old", "QQQ", 90*time.Second))
	m := testMonitor(b)

	first, err := m.Sweep(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, first.Cancelled, 1)

	// Cancelled orders drop out of the open-order listing, so a second
	// sweep finds nothing to do.
	second, err := m.Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Checked)
	assert.Empty(t, second.Cancelled)
	assert.Empty(t, second.Failures)
}

func TestSweep_DryRunHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	b := broker.NewPaperBroker()
	b.SeedOrder(workingOrder("old", "QQQ", 90*time.Second))

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer s.Close()

	m := testMonitor(b)
	m.store = s

	result, err := m.Sweep(ctx, true)
	require.NoError(t, err)

	require.Len(t, result.Cancelled, 1)
	assert.True(t, result.DryRun)
	assert.True(t, result.Cancelled[0].DryRun)

	// The order is still working at the broker.
	status, ok := b.OrderStatus("old")
	require.True(t, ok)
	assert.Equal(t, models.StatusAccepted, status)

	// Nothing reaches the audit trail either.
	rows, err := s.RecentCancellations(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	last, err := s.LastRun(ctx, jobName)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	// A real sweep over the same book does record.
	live, err := m.Sweep(ctx, false)
	require.NoError(t, err)
	require.Len(t, live.Cancelled, 1)

	rows, err = s.RecentCancellations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "old", rows[0].OrderID)

	last, err = s.LastRun(ctx, jobName)
	require.NoError(t, err)
	assert.Equal(t, testNow, last.UTC())
}

// failingCancelBroker wraps a paper broker and fails cancels for one ID.
type failingCancelBroker struct {
	*broker.PaperBroker
	failID string
}

func (f *failingCancelBroker) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == f.failID {
		return errors.New("simulated broker outage")
	}
	return f.PaperBroker.CancelOrder(ctx, orderID)
}

func TestSweep_PartialCancelFailureContinues(t *testing.T) {
	inner := broker.NewPaperBroker()
	inner.SeedOrder(workingOrder("stuck", "SPY", 90*time.Second))
	inner.SeedOrder(workingOrder("ok", "QQQ", 120*time.Second))
	b := &failingCancelBroker{PaperBroker: inner, failID: "stuck"}

	result, err := testMonitor(b).Sweep(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, result.Cancelled, 1)
	assert.Equal(t, "ok", result.Cancelled[0].OrderID)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stuck", result.Failures[0].OrderID)
	assert.Contains(t, result.Failures[0].Error, "simulated broker outage")

	// The failed order stays working; a later sweep retries it.
	status, ok := inner.OrderStatus("stuck")
	require.True(t, ok)
	assert.Equal(t, models.StatusAccepted, status)
}

// flakyListBroker fails the first listing call, then delegates.
type flakyListBroker struct {
	*broker.PaperBroker
	calls int
}

func (f *flakyListBroker) ListOpenOrders(ctx context.Context) ([]models.TrackedOrder, error) {
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("transient listing failure")
	}
	return f.PaperBroker.ListOpenOrders(ctx)
}

func TestSweep_ListingRetriedOnce(t *testing.T) {
	inner := broker.NewPaperBroker()
	inner.SeedOrder(workingOrder("old", "SPY", 90*time.Second))
	b := &flakyListBroker{PaperBroker: inner}

	result, err := testMonitor(b).Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls)
	require.Len(t, result.Cancelled, 1)
}

func TestSweep_EmptyBook(t *testing.T) {
	result, err := testMonitor(broker.NewPaperBroker()).Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)
	assert.Empty(t, result.Cancelled)
}
