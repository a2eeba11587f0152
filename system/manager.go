package system

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Manager holds the live, process-wide SystemRule set, published via an
// atomic.Pointer so readers never observe a torn swap (SPEC_FULL.md §5's
// "active rule set is published via a volatile reference").
type Manager struct {
	rules atomic.Pointer[[]*Rule]
}

func NewManager() *Manager {
	m := &Manager{}
	empty := make([]*Rule, 0)
	m.rules.Store(&empty)
	return m
}

// LoadRules validates every rule first; if any is invalid, the entire set
// is rejected and the previously active set is left untouched.
func (m *Manager) LoadRules(rules []*Rule) error {
	for _, r := range rules {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if err := r.validate(); err != nil {
			return errors.Wrapf(err, "system: rejecting entire rule set")
		}
	}
	next := make([]*Rule, len(rules))
	copy(next, rules)
	m.rules.Store(&next)
	return nil
}

func (m *Manager) GetRules() []*Rule {
	p := m.rules.Load()
	if p == nil {
		return nil
	}
	return *p
}

var Default = NewManager()
