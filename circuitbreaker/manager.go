package circuitbreaker

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/pkg/errors"

	"github.com/flowgate-io/flowcore/base"
)

// NodeResolver looks up the Node a breaker should read signals from for a
// given resource (normally the resource's ClusterNode). Kept as an
// injectable func, not a direct statnode import in Manager's public API,
// so tests can bind breakers to hand-built fake nodes.
type NodeResolver func(resource string) base.Node

// Manager holds the live breaker set per resource, swapped atomically on
// LoadRules (SPEC_FULL.md §4.10).
type Manager struct {
	resolver NodeResolver
	breakers *xsync.Map[string, []*Breaker]
}

func NewManager(resolver NodeResolver) *Manager {
	return &Manager{resolver: resolver, breakers: xsync.NewMap[string, []*Breaker]()}
}

// LoadRules validates every rule first; if any is invalid, the entire set
// is rejected and the previously active set is left untouched (SPEC_FULL.md
// §4.10/spec.md §7 "Rule validation" — matching the whole-set-rejection
// semantics of flow/hotspot/system's managers, rather than silently
// dropping individually-invalid rules).
func (m *Manager) LoadRules(rules []*Rule) error {
	for _, r := range rules {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if err := r.validate(); err != nil {
			return errors.Wrapf(err, "circuitbreaker: rejecting entire rule set")
		}
	}

	grouped := make(map[string][]*Breaker)
	for _, r := range rules {
		node := m.resolver(r.Resource)
		b, err := NewBreaker(r, node)
		if err != nil {
			return errors.Wrapf(err, "circuitbreaker: rejecting entire rule set")
		}
		grouped[r.Resource] = append(grouped[r.Resource], b)
	}
	next := xsync.NewMap[string, []*Breaker]()
	for res, bs := range grouped {
		next.Store(res, bs)
	}
	m.breakers = next
	return nil
}

// BreakersFor returns the breakers configured for resource, or nil.
func (m *Manager) BreakersFor(resource string) []*Breaker {
	bs, _ := m.breakers.Load(resource)
	return bs
}
