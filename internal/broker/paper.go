package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
)

// PaperBroker implements the Broker interface for paper trading and tests.
// Orders are accepted and held in a working state; nothing fills unless a
// test marks it filled.
type PaperBroker struct {
	orders    map[string]*models.TrackedOrder
	positions map[string]*models.Position

	clock func() time.Time

	mu sync.RWMutex
}

// NewPaperBroker creates a new paper trading broker.
func NewPaperBroker() *PaperBroker {
	return &PaperBroker{
		orders:    make(map[string]*models.TrackedOrder),
		positions: make(map[string]*models.Position),
		clock:     time.Now,
	}
}

// SetClock overrides the broker's clock. Intended for tests.
func (p *PaperBroker) SetClock(clock func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
}

// SubmitOrder simulates order placement. Every leg must be present; a
// partially specified structure is rejected outright.
func (p *PaperBroker) SubmitOrder(ctx context.Context, order *models.SpreadOrder) (string, error) {
	if err := order.ValidatePairing(); err != nil {
		return "", derrors.NewOrderError("", order.Symbol, "submit", "unpaired legs", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewString()
	qty := order.Quantity
	if qty <= 0 {
		qty = 1
	}
	p.orders[id] = &models.TrackedOrder{
		ID:          id,
		Symbol:      order.Symbol,
		Side:        models.SideSell,
		Quantity:    float64(qty),
		OrderType:   "limit",
		SubmittedAt: p.clock(),
		Status:      models.StatusAccepted,
	}
	return id, nil
}

// CancelOrder simulates order cancellation.
func (p *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return derrors.ErrOrderNotFound
	}
	if !order.Status.IsPending() {
		return derrors.NewOrderError(orderID, order.Symbol, "cancel",
			"order not in a cancellable state", nil)
	}
	order.Status = models.StatusCancelled
	return nil
}

// ListOpenOrders returns orders still in a working state.
func (p *PaperBroker) ListOpenOrders(ctx context.Context) ([]models.TrackedOrder, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []models.TrackedOrder
	for _, o := range p.orders {
		if o.Status.IsPending() {
			out = append(out, *o)
		}
	}
	return out, nil
}

// ListPositions returns the simulated positions.
func (p *PaperBroker) ListPositions(ctx context.Context) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []models.Position
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out, nil
}

// SeedOrder injects a working order directly. Intended for tests.
func (p *PaperBroker) SeedOrder(order models.TrackedOrder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	p.orders[order.ID] = &order
}

// SeedPosition injects a position directly. Intended for tests.
func (p *PaperBroker) SeedPosition(pos models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[pos.Symbol] = &pos
}

// OrderStatus returns the current status of an order.
func (p *PaperBroker) OrderStatus(orderID string) (models.OrderStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[orderID]
	if !ok {
		return "", false
	}
	return o.Status, true
}
