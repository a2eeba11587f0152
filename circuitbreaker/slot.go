package circuitbreaker

import (
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/errs"
)

// Order within the RuleCheckSlot category: degrade runs last, after
// authority/system/param-flow/flow (SPEC_FULL.md §2).
const Order uint32 = 50

// Slot is the DegradeSlot RuleCheckSlot.
type Slot struct {
	Manager *Manager
}

func NewSlot(m *Manager) *Slot {
	return &Slot{Manager: m}
}

func (s *Slot) Order() uint32 { return Order }

func (s *Slot) Check(ctx *base.EntryContext) *base.TokenResult {
	e := ctx.Entry()
	breakers := s.Manager.BreakersFor(e.Resource().Name)
	for _, b := range breakers {
		if !b.TryPass() {
			return base.NewTokenResultBlocked(errs.New(errs.BlockTypeDegrade, e.Resource().Name, b.Rule()))
		}
	}
	return base.NewTokenResultPass()
}

var _ base.RuleCheckSlot = (*Slot)(nil)
