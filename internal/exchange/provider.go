package exchange

import (
	"context"

	"github.com/quorumtrade/poolarb/pkg/types"
)

// Provider is the external price-and-execution collaborator. Implementations
// talk to real venues; the core only depends on this contract.
type Provider interface {
	// GetQuote returns the current best bid/ask for a symbol on a venue.
	GetQuote(ctx context.Context, venue, symbol string) (types.Quote, error)

	// PlaceOrder places one order leg and returns the fill.
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Fill, error)

	// CancelOrder cancels (or reverses) a previously placed order.
	CancelOrder(ctx context.Context, venue, orderID string) error

	// GetBalance returns the available balance of an asset on a venue.
	GetBalance(ctx context.Context, venue, asset string) (float64, error)
}
