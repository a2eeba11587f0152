package hotspot

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/pkg/errors"
)

// Manager holds the live ParamFlowRule set indexed by resource, swapped
// atomically on LoadRules (SPEC_FULL.md §4.10).
type Manager struct {
	rules *xsync.Map[string, []*Rule]
}

func NewManager() *Manager {
	return &Manager{rules: xsync.NewMap[string, []*Rule]()}
}

// LoadRules validates every rule first; if any is invalid, the entire set
// is rejected and the previously active set is left untouched.
func (m *Manager) LoadRules(rules []*Rule) error {
	grouped := make(map[string][]*Rule, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if err := r.validate(); err != nil {
			return errors.Wrapf(err, "hotspot: rejecting entire rule set")
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

func (m *Manager) RulesFor(resource string) []*Rule {
	rs, _ := m.rules.Load(resource)
	return rs
}

func (m *Manager) GetRules() []*Rule {
	out := make([]*Rule, 0)
	m.rules.Range(func(_ string, rs []*Rule) bool {
		out = append(out, rs...)
		return true
	})
	return out
}

var Default = NewManager()
