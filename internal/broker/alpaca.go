package broker

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	derrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
)

const defaultAlpacaBaseURL = "https://paper-api.alpaca.markets"

// AlpacaConfig holds Alpaca REST API configuration.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// AlpacaBroker implements the Broker interface against the Alpaca
// trading REST API.
type AlpacaBroker struct {
	client *resty.Client
}

// NewAlpacaBroker creates a new Alpaca broker client.
func NewAlpacaBroker(cfg AlpacaConfig) *AlpacaBroker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAlpacaBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("APCA-API-KEY-ID", cfg.APIKey).
		SetHeader("APCA-API-SECRET-KEY", cfg.APISecret).
		SetHeader("Accept", "application/json")

	return &AlpacaBroker{client: client}
}

type alpacaOrderLeg struct {
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	PositionIntent string `json:"position_intent"`
	RatioQty       string `json:"ratio_qty"`
}

type alpacaOrderRequest struct {
	OrderClass  string           `json:"order_class"`
	Qty         string           `json:"qty"`
	Type        string           `json:"type"`
	LimitPrice  string           `json:"limit_price,omitempty"`
	TimeInForce string           `json:"time_in_force"`
	Legs        []alpacaOrderLeg `json:"legs"`
}

type alpacaOrder struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Qty         string    `json:"qty"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	MarketValue   string `json:"market_value"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	UnrealizedPL  string `json:"unrealized_pl"`
}

// SubmitOrder submits a multi-leg options order. The structure must be
// fully paired before it goes anywhere near the wire.
func (b *AlpacaBroker) SubmitOrder(ctx context.Context, order *models.SpreadOrder) (string, error) {
	if err := order.ValidatePairing(); err != nil {
		return "", derrors.NewOrderError("", order.Symbol, "submit", "unpaired legs", err)
	}

	qty := order.Quantity
	if qty <= 0 {
		qty = 1
	}

	req := alpacaOrderRequest{
		OrderClass:  "mleg",
		Qty:         strconv.Itoa(qty),
		Type:        "limit",
		LimitPrice:  fmt.Sprintf("%.2f", order.NetCredit),
		TimeInForce: "day",
	}
	for _, leg := range order.Legs {
		req.Legs = append(req.Legs, alpacaOrderLeg{
			Symbol:         occSymbol(leg),
			Side:           strings.ToLower(string(leg.Side)),
			PositionIntent: positionIntent(leg.Side),
			RatioQty:       "1",
		})
	}

	var placed alpacaOrder
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&placed).
		Post("/v2/orders")
	if err != nil {
		return "", derrors.NewBrokerError("submit", "order submission failed", err)
	}
	if resp.IsError() {
		return "", apiError("order submission", resp)
	}
	return placed.ID, nil
}

// CancelOrder cancels a working order by ID.
func (b *AlpacaBroker) CancelOrder(ctx context.Context, orderID string) error {
	resp, err := b.client.R().
		SetContext(ctx).
		Delete("/v2/orders/" + orderID)
	if err != nil {
		return derrors.NewBrokerError("cancel", "order cancellation failed", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return derrors.ErrOrderNotFound
	}
	if resp.IsError() {
		return apiError(fmt.Sprintf("cancel of %s", orderID), resp)
	}
	return nil
}

// ListOpenOrders returns all working orders.
func (b *AlpacaBroker) ListOpenOrders(ctx context.Context) ([]models.TrackedOrder, error) {
	var raw []alpacaOrder
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("status", "open").
		SetResult(&raw).
		Get("/v2/orders")
	if err != nil {
		return nil, derrors.NewBrokerError("list_orders", "listing open orders failed", err)
	}
	if resp.IsError() {
		return nil, apiError("listing open orders", resp)
	}

	out := make([]models.TrackedOrder, 0, len(raw))
	for _, o := range raw {
		order, err := o.toTrackedOrder()
		if err != nil {
			return nil, derrors.NewBrokerError("list_orders", "decoding order payload", err)
		}
		out = append(out, order)
	}
	return out, nil
}

// ListPositions returns all open positions.
func (b *AlpacaBroker) ListPositions(ctx context.Context) ([]models.Position, error) {
	var raw []alpacaPosition
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&raw).
		Get("/v2/positions")
	if err != nil {
		return nil, derrors.NewBrokerError("list_positions", "listing positions failed", err)
	}
	if resp.IsError() {
		return nil, apiError("listing positions", resp)
	}

	out := make([]models.Position, 0, len(raw))
	for _, p := range raw {
		position, err := p.toPosition()
		if err != nil {
			return nil, derrors.NewBrokerError("list_positions", "decoding position payload", err)
		}
		out = append(out, position)
	}
	return out, nil
}

// toTrackedOrder converts a wire-format order, failing on malformed
// numeric fields rather than defaulting them to zero.
func (o alpacaOrder) toTrackedOrder() (models.TrackedOrder, error) {
	qty, err := parseFloat("qty", o.Qty)
	if err != nil {
		return models.TrackedOrder{}, err
	}
	return models.TrackedOrder{
		ID:          o.ID,
		Symbol:      o.Symbol,
		Side:        models.OrderSide(strings.ToUpper(o.Side)),
		Quantity:    qty,
		OrderType:   o.Type,
		SubmittedAt: o.SubmittedAt,
		Status:      mapOrderStatus(o.Status),
	}, nil
}

func (p alpacaPosition) toPosition() (models.Position, error) {
	out := models.Position{Symbol: p.Symbol}
	var err error
	if out.Quantity, err = parseFloat("qty", p.Qty); err != nil {
		return out, err
	}
	if out.MarketValue, err = parseFloat("market_value", p.MarketValue); err != nil {
		return out, err
	}
	if out.AvgEntryPrice, err = parseFloat("avg_entry_price", p.AvgEntryPrice); err != nil {
		return out, err
	}
	if out.CurrentPrice, err = parseFloat("current_price", p.CurrentPrice); err != nil {
		return out, err
	}
	if out.UnrealizedPL, err = parseFloat("unrealized_pl", p.UnrealizedPL); err != nil {
		return out, err
	}
	return out, nil
}

// occSymbol formats a leg as an OCC option symbol, e.g.
// SPY250919C00580000. The strike is rounded, not truncated: dollar
// strikes are not binary-exact.
func occSymbol(leg models.OptionLeg) string {
	cp := "C"
	if leg.OptionType == models.OptionPut {
		cp = "P"
	}
	return fmt.Sprintf("%s%s%s%08d",
		leg.Symbol,
		leg.Expiration.Format("060102"),
		cp,
		int(math.Round(leg.Strike*1000)))
}

func positionIntent(side models.OrderSide) string {
	if side == models.SideSell {
		return "sell_to_open"
	}
	return "buy_to_open"
}

func mapOrderStatus(s string) models.OrderStatus {
	switch s {
	case "new":
		return models.StatusNew
	case "accepted":
		return models.StatusAccepted
	case "pending_new":
		return models.StatusPendingNew
	case "partially_filled":
		return models.StatusPartiallyFilled
	case "filled":
		return models.StatusFilled
	case "canceled", "cancelled":
		return models.StatusCancelled
	case "rejected":
		return models.StatusRejected
	default:
		return models.OrderStatus(strings.ToUpper(s))
	}
}

// apiError maps an HTTP error response to a typed error; credential
// failures surface as the auth sentinel so callers can tell them from
// transient rejections.
func apiError(op string, resp *resty.Response) error {
	code := resp.StatusCode()
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return derrors.ErrNotAuthenticated
	}
	return derrors.NewBrokerError(resp.Status(),
		fmt.Sprintf("%s rejected: %s", op, resp.String()), nil)
}

// parseFloat parses a wire-format numeric string. An absent field is
// zero; a malformed one is an error, never a silent zero.
func parseFloat(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed %s %q: %w", field, s, err)
	}
	return f, nil
}
