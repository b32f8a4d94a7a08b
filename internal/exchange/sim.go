package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quorumtrade/poolarb/pkg/types"
	"go.uber.org/zap"
)

// SimProvider is a deterministic in-memory provider for paper trading and
// tests: fixed books, taker fees, balances, and programmable leg failures.
type SimProvider struct {
	mu       sync.Mutex
	books    map[string]map[string]types.Quote // venue → symbol → quote
	fees     map[string]float64                // venue → taker fee rate
	balances map[string]map[string]float64     // venue → asset → amount
	orders   map[string]types.OrderRequest     // orderID → request

	failPlace  map[string]error // venue → forced PlaceOrder error
	failCancel map[string]error // venue → forced CancelOrder error

	logger *zap.Logger
}

// NewSimProvider creates an empty simulated provider.
func NewSimProvider(logger *zap.Logger) *SimProvider {
	return &SimProvider{
		books:      make(map[string]map[string]types.Quote),
		fees:       make(map[string]float64),
		balances:   make(map[string]map[string]float64),
		orders:     make(map[string]types.OrderRequest),
		failPlace:  make(map[string]error),
		failCancel: make(map[string]error),
		logger:     logger,
	}
}

// SetQuote installs a top-of-book quote for a venue/symbol.
func (s *SimProvider) SetQuote(venue, symbol string, bid, ask float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.books[venue] == nil {
		s.books[venue] = make(map[string]types.Quote)
	}
	s.books[venue][symbol] = types.Quote{
		Venue:     venue,
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}
}

// SetTakerFee sets a venue's taker fee rate.
func (s *SimProvider) SetTakerFee(venue string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees[venue] = rate
}

// SetBalance sets the available balance of an asset on a venue.
func (s *SimProvider) SetBalance(venue, asset string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[venue] == nil {
		s.balances[venue] = make(map[string]float64)
	}
	s.balances[venue][asset] = amount
}

// FailPlaceOrders makes PlaceOrder on the venue return err (nil clears).
func (s *SimProvider) FailPlaceOrders(venue string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failPlace, venue)
		return
	}
	s.failPlace[venue] = err
}

// FailCancels makes CancelOrder on the venue return err (nil clears).
func (s *SimProvider) FailCancels(venue string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failCancel, venue)
		return
	}
	s.failCancel[venue] = err
}

// GetQuote returns the installed quote.
func (s *SimProvider) GetQuote(ctx context.Context, venue, symbol string) (types.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[venue]
	if !ok {
		return types.Quote{}, fmt.Errorf("venue %s: no quotes", venue)
	}
	q, ok := book[symbol]
	if !ok {
		return types.Quote{}, fmt.Errorf("venue %s symbol %s: no quote", venue, symbol)
	}
	return q, nil
}

// PlaceOrder fills the full quantity at the requested limit price, charging
// the venue's taker fee on the notional.
func (s *SimProvider) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Fill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failPlace[req.Venue]; ok {
		return types.Fill{}, err
	}

	fill := types.Fill{
		OrderID:        uuid.New().String(),
		FilledQuantity: req.Quantity,
		AvgPrice:       req.Price,
		Fee:            req.Quantity * req.Price * s.fees[req.Venue],
	}
	s.orders[fill.OrderID] = req

	s.logger.Debug("sim-order-filled",
		zap.String("venue", req.Venue),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("quantity", fill.FilledQuantity),
		zap.Float64("price", fill.AvgPrice),
		zap.Float64("fee", fill.Fee))

	return fill, nil
}

// CancelOrder reverses a previously placed order.
func (s *SimProvider) CancelOrder(ctx context.Context, venue, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failCancel[venue]; ok {
		return err
	}
	if _, ok := s.orders[orderID]; !ok {
		return fmt.Errorf("order %s: %w", orderID, types.ErrNotFound)
	}

	delete(s.orders, orderID)
	return nil
}

// GetBalance returns the configured balance, zero when unset.
func (s *SimProvider) GetBalance(ctx context.Context, venue, asset string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.balances[venue]; ok {
		return b[asset], nil
	}
	return 0, nil
}
