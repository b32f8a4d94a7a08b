package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quorumtrade/poolarb/pkg/types"
	"go.uber.org/zap"
)

// Handler executes one product run.
type Handler func(ctx context.Context) (interface{}, error)

// Product is a registered strategy or service. The registry only does
// bookkeeping and dispatch; products carry their own business logic.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Enabled     bool              `json:"enabled"`
	Config      map[string]string `json:"config,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Registry holds products and their handlers, dispatching by ID.
type Registry struct {
	mu       sync.RWMutex
	products map[string]*Product
	handlers map[string]Handler
	logger   *zap.Logger
}

// New returns an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		products: make(map[string]*Product),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register adds a product. handler may be nil for bookkeeping-only entries.
func (r *Registry) Register(p Product, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return fmt.Errorf("product %s: %w", p.ID, types.ErrAlreadyExists)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	r.products[p.ID] = &p
	if handler != nil {
		r.handlers[p.ID] = handler
	}

	r.logger.Info("product-registered",
		zap.String("product-id", p.ID),
		zap.String("category", p.Category),
		zap.Bool("enabled", p.Enabled))

	return nil
}

// Enable turns a product on.
func (r *Registry) Enable(productID string) error {
	return r.setEnabled(productID, true)
}

// Disable turns a product off. Execute refuses disabled products.
func (r *Registry) Disable(productID string) error {
	return r.setEnabled(productID, false)
}

func (r *Registry) setEnabled(productID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, types.ErrNotFound)
	}

	p.Enabled = enabled
	r.logger.Info("product-toggled",
		zap.String("product-id", productID),
		zap.Bool("enabled", enabled))

	return nil
}

// Execute dispatches to the product's handler.
func (r *Registry) Execute(ctx context.Context, productID string) (interface{}, error) {
	r.mu.RLock()
	p, ok := r.products[productID]
	handler := r.handlers[productID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, types.ErrNotFound)
	}
	if !p.Enabled {
		return nil, fmt.Errorf("product %s: %w", productID, types.ErrProductDisabled)
	}
	if handler == nil {
		return nil, fmt.Errorf("product %s: %w", productID, types.ErrNoHandler)
	}

	result, err := handler(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute product %s: %w", productID, err)
	}

	return result, nil
}

// Get returns a product copy by ID.
func (r *Registry) Get(productID string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return Product{}, fmt.Errorf("product %s: %w", productID, types.ErrNotFound)
	}
	return *p, nil
}

// List returns all products sorted by ID.
func (r *Registry) List() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByCategory returns enabled products in a category, sorted by ID.
func (r *Registry) ByCategory(category string) []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0)
	for _, p := range r.products {
		if p.Enabled && p.Category == category {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
