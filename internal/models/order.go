package models

import "time"

// OrderStatus is the broker-reported lifecycle state of a working order.
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusAccepted        OrderStatus = "ACCEPTED"
	StatusPendingNew      OrderStatus = "PENDING_NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
)

// PendingStatuses are the states in which an order is still working and
// therefore eligible for zombie cleanup.
var PendingStatuses = []OrderStatus{
	StatusNew, StatusAccepted, StatusPendingNew, StatusPartiallyFilled,
}

// IsPending reports whether the status is a working (unfilled) state.
func (s OrderStatus) IsPending() bool {
	for _, p := range PendingStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// TrackedOrder is a broker order as seen by the lifecycle monitor.
type TrackedOrder struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Quantity    float64     `json:"quantity"`
	OrderType   string      `json:"order_type"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Status      OrderStatus `json:"status"`
}

// Age returns how long the order has been working.
func (o *TrackedOrder) Age(now time.Time) time.Duration {
	return now.Sub(o.SubmittedAt)
}

// Cancellation records one zombie-order cancellation for the audit trail.
type Cancellation struct {
	OrderID     string        `json:"order_id"`
	Symbol      string        `json:"symbol"`
	AgeAtCancel time.Duration `json:"age_at_cancel"`
	CancelledAt time.Time     `json:"cancelled_at"`
	DryRun      bool          `json:"dry_run"`
}
