package providers

import (
	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

// Registry implements delivery.AdapterRegistry over a fixed adapter set.
// Provider codes without a registered adapter (Talabat today) resolve to
// ErrProviderNotSupported.
type Registry struct {
	adapters map[delivery.ProviderCode]delivery.ProviderAdapter
	order    []delivery.ProviderCode
}

// NewRegistry creates a registry from the given adapters. Later adapters
// with the same code replace earlier ones.
func NewRegistry(adapters ...delivery.ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[delivery.ProviderCode]delivery.ProviderAdapter)}
	for _, a := range adapters {
		if _, ok := r.adapters[a.Code()]; !ok {
			r.order = append(r.order, a.Code())
		}
		r.adapters[a.Code()] = a
	}
	return r
}

// NewDefaultRegistry creates a registry with every shipped adapter in its
// production configuration.
func NewDefaultRegistry() (*Registry, error) {
	careem, err := NewCareemAdapter(NewCareemConfig())
	if err != nil {
		return nil, err
	}
	deliveroo, err := NewDeliverooAdapter(NewDeliverooConfig())
	if err != nil {
		return nil, err
	}
	jahez, err := NewJahezAdapter(NewJahezConfig())
	if err != nil {
		return nil, err
	}
	return NewRegistry(careem, deliveroo, jahez), nil
}

// Adapter returns the adapter for the given code.
func (r *Registry) Adapter(code delivery.ProviderCode) (delivery.ProviderAdapter, error) {
	a, ok := r.adapters[code]
	if !ok {
		return nil, delivery.ErrProviderNotSupported
	}
	return a, nil
}

// Adapters returns every registered adapter in registration order.
func (r *Registry) Adapters() []delivery.ProviderAdapter {
	out := make([]delivery.ProviderAdapter, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.adapters[code])
	}
	return out
}

// Ensure Registry implements AdapterRegistry.
var _ delivery.AdapterRegistry = (*Registry)(nil)
