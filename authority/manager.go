package authority

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// Manager holds the live rule set, keyed by resource, swapped atomically
// on LoadRules the way FlowRuleManager does (SPEC_FULL.md §3).
type Manager struct {
	rules *xsync.Map[string, []*Rule]
}

func NewManager() *Manager {
	return &Manager{rules: xsync.NewMap[string, []*Rule]()}
}

// LoadRules replaces the entire rule set, grouping by Resource.
func (m *Manager) LoadRules(rules []*Rule) {
	grouped := make(map[string][]*Rule)
	for _, r := range rules {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		// Rules built as struct literals (config/datasource feeds, rather
		// than NewRule) never had LimitApp compiled into r.origins; do it
		// here so LoadRules itself is the single place Allows can rely on.
		r.compile()
		grouped[r.Resource] = append(grouped[r.Resource], r)
	}
	next := xsync.NewMap[string, []*Rule]()
	for res, rs := range grouped {
		next.Store(res, rs)
	}
	m.rules = next
}

// RulesFor returns the rules configured for resource, or nil.
func (m *Manager) RulesFor(resource string) []*Rule {
	rs, _ := m.rules.Load(resource)
	return rs
}

// Default is the process-wide Manager the root API wires AuthoritySlot to.
var Default = NewManager()
