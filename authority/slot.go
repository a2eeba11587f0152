package authority

import (
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/errs"
)

// Order within the RuleCheckSlot category: authority checks run before
// system/param-flow/flow/degrade (SPEC_FULL.md §4.3).
const Order uint32 = 10

// Slot is the AuthoritySlot RuleCheckSlot.
type Slot struct {
	Manager *Manager
}

func NewSlot(m *Manager) *Slot {
	if m == nil {
		m = Default
	}
	return &Slot{Manager: m}
}

func (s *Slot) Order() uint32 { return Order }

func (s *Slot) Check(ctx *base.EntryContext) *base.TokenResult {
	e := ctx.Entry()
	rules := s.Manager.RulesFor(e.Resource().Name)
	if len(rules) == 0 {
		return base.NewTokenResultPass()
	}
	origin := e.Context().Origin()
	for _, r := range rules {
		if !r.Allows(origin) {
			return base.NewTokenResultBlocked(errs.NewWithMessage(errs.BlockTypeAuthority, e.Resource().Name, r, "origin="+origin))
		}
	}
	return base.NewTokenResultPass()
}

var _ base.RuleCheckSlot = (*Slot)(nil)
