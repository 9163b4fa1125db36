// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"

	"condor-trader/internal/models"
)

// Broker defines the four broker operations the core depends on. Any
// other broker capability is opaque to this system.
type Broker interface {
	// SubmitOrder submits a multi-leg order and returns the broker order ID.
	SubmitOrder(ctx context.Context, order *models.SpreadOrder) (string, error)

	// CancelOrder cancels a working order by ID. Never retried: a cancel
	// that may have landed must not be re-sent.
	CancelOrder(ctx context.Context, orderID string) error

	// ListOpenOrders returns all working orders.
	ListOpenOrders(ctx context.Context) ([]models.TrackedOrder, error)

	// ListPositions returns all open positions as the broker sees them.
	ListPositions(ctx context.Context) ([]models.Position, error)
}
