package flow

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/pkg/errors"
)

// Manager holds the live FlowRule set indexed by resource name, swapped
// atomically on LoadRules (SPEC_FULL.md §4.10): "loadRules validates,
// rebuilds the maps, and atomically swaps them in"; any invalid rule in
// the incoming set rejects the whole set and preserves the prior one
// (spec.md §7 "Rule validation").
type Manager struct {
	rules *xsync.Map[string, []*Rule]
}

func NewManager() *Manager {
	return &Manager{rules: xsync.NewMap[string, []*Rule]()}
}

// LoadRules validates every rule first; if any is invalid, the entire set
// is rejected and the previously active set is left untouched.
func (m *Manager) LoadRules(rules []*Rule) error {
	seenFlowIds := make(map[uint64]struct{})
	grouped := make(map[string][]*Rule, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if err := r.validate(); err != nil {
			return errors.Wrapf(err, "flow: rejecting entire rule set")
		}
		if r.ClusterMode {
			if _, dup := seenFlowIds[r.ClusterFlowId]; dup {
				return errors.Errorf("flow: duplicate clusterFlowId %d, rejecting entire rule set", r.ClusterFlowId)
			}
			seenFlowIds[r.ClusterFlowId] = struct{}{}
		}
		grouped[r.Resource] = append(grouped[r.Resource], r)
	}

	next := xsync.NewMap[string, []*Rule]()
	for res, rs := range grouped {
		next.Store(res, rs)
	}
	m.rules = next
	return nil
}

// RulesFor returns the rules configured for resource, or nil.
func (m *Manager) RulesFor(resource string) []*Rule {
	rs, _ := m.rules.Load(resource)
	return rs
}

// GetRules snapshots every currently active rule, across all resources.
func (m *Manager) GetRules() []*Rule {
	out := make([]*Rule, 0)
	m.rules.Range(func(_ string, rs []*Rule) bool {
		out = append(out, rs...)
		return true
	})
	return out
}

// Default is the process-wide Manager the root API wires FlowSlot to.
var Default = NewManager()
