// Package registry implements the resource routing registry: a
// bidirectional mapping between resource identifiers and the handler
// contracts that own them. One resource maps to exactly one address at a
// time and vice versa; every mutation leaves the two indices consistent
// before it returns.
package registry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relayflow/relayflow/internal/runtime/logging"
	"github.com/relayflow/relayflow/internal/runtime/types"
)

// RoutingEntry is one resource-to-handler binding.
type RoutingEntry struct {
	ResourceID      types.ResourceID
	ContractAddress types.Address
}

// Registry holds the two synchronized indices under a single lock. Both
// maps describe the same logical entries; mutations touch both inside one
// critical section so no partial update is observable.
type Registry struct {
	mu         sync.RWMutex
	byResource map[types.ResourceID]types.Address
	byAddress  map[types.Address]types.ResourceID

	log    logging.ServiceLogger
	routes prometheus.Gauge
}

// Option customises a Registry.
type Option func(*Registry)

// WithLogger attaches a logger; reassignments are logged at info level.
func WithLogger(log logging.ServiceLogger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetrics registers a gauge tracking the routing table size with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Registry) {
		if reg == nil {
			return
		}
		r.routes = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relayflow",
			Name:      "registry_routes",
			Help:      "Number of resource-to-handler routes currently installed.",
		})
		reg.MustRegister(r.routes)
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byResource: make(map[types.ResourceID]types.Address),
		byAddress:  make(map[types.Address]types.ResourceID),
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetResource binds resourceID to addr, removing any stale half-entries
// first: a resource previously bound to another address loses that reverse
// link, and an address previously bound to another resource loses that
// forward link. Re-registering the identical pair is a no-op. The auxiliary
// argument is opaque configuration from the administrative caller and is
// ignored here.
func (r *Registry) SetResource(resourceID types.ResourceID, addr types.Address, auxiliary []byte) {
	_ = auxiliary

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byResource[resourceID]; ok {
		if current == addr {
			return
		}
		delete(r.byAddress, current)
	}
	if previous, ok := r.byAddress[addr]; ok && previous != resourceID {
		delete(r.byResource, previous)
	}

	r.byResource[resourceID] = addr
	r.byAddress[addr] = resourceID

	if r.routes != nil {
		r.routes.Set(float64(len(r.byResource)))
	}
	r.log.Info("route installed", logging.LogFields{
		"resource_id":      resourceID.Hex(),
		"contract_address": addr.Hex(),
	})
}

// ResolveAddress returns the handler bound to resourceID, or the zero
// address when unmapped. It never fails.
func (r *Registry) ResolveAddress(resourceID types.ResourceID) types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byResource[resourceID]
}

// ResolveResource returns the resource bound to addr, or the zero resource
// identifier when unmapped.
func (r *Registry) ResolveResource(addr types.Address) types.ResourceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byAddress[addr]
}

// Len returns the number of installed routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byResource)
}

// Entries returns a snapshot of the routing table.
func (r *Registry) Entries() []RoutingEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]RoutingEntry, 0, len(r.byResource))
	for id, addr := range r.byResource {
		entries = append(entries, RoutingEntry{ResourceID: id, ContractAddress: addr})
	}
	return entries
}
