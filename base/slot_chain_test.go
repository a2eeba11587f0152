package base

import (
	"testing"

	"github.com/flowgate-io/flowcore/errs"
	"github.com/flowgate-io/flowcore/flowclock"
)

type recordingPrepareSlot struct {
	order   uint32
	calls   *[]string
	label   string
}

func (s *recordingPrepareSlot) Order() uint32 { return s.order }
func (s *recordingPrepareSlot) Prepare(ctx *EntryContext) {
	*s.calls = append(*s.calls, s.label)
}

type fixedRuleCheckSlot struct {
	order  uint32
	result *TokenResult
}

func (s *fixedRuleCheckSlot) Order() uint32                     { return s.order }
func (s *fixedRuleCheckSlot) Check(ctx *EntryContext) *TokenResult { return s.result }

type recordingStatSlot struct {
	order     uint32
	passed    int
	blocked   int
	completed int
}

func (s *recordingStatSlot) Order() uint32                               { return s.order }
func (s *recordingStatSlot) OnEntryPassed(ctx *EntryContext)              { s.passed++ }
func (s *recordingStatSlot) OnEntryBlocked(ctx *EntryContext, err error)  { s.blocked++ }
func (s *recordingStatSlot) OnCompleted(ctx *EntryContext)                { s.completed++ }

type panickyRuleCheckSlot struct{ order uint32 }

func (s *panickyRuleCheckSlot) Order() uint32 { return s.order }
func (s *panickyRuleCheckSlot) Check(ctx *EntryContext) *TokenResult {
	panic("boom")
}

func TestStatPrepareSlotsRunInOrderRegardlessOfAddOrder(t *testing.T) {
	var calls []string
	sc := NewSlotChain(flowclock.NewFake(0))
	sc.AddStatPrepareSlot(&recordingPrepareSlot{order: 20, calls: &calls, label: "second"})
	sc.AddStatPrepareSlot(&recordingPrepareSlot{order: 10, calls: &calls, label: "first"})

	res := GetResource("R", EntryTypeIn)
	goCtx := NewContext("c", "", nil)
	e, result := sc.DoEntry(res, goCtx, 1, nil)
	if result.IsBlocked() {
		t.Fatalf("expected Pass with no rule-check slots, got blocked")
	}
	e.Exit(0, 1, nil)

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("expected StatPrepareSlots to run in ascending Order, got %v", calls)
	}
}

func TestRuleCheckSlotsShortCircuitOnFirstBlock(t *testing.T) {
	sc := NewSlotChain(flowclock.NewFake(0))
	be := errs.New(errs.BlockTypeFlow, "R", nil)
	sc.AddRuleCheckSlot(&fixedRuleCheckSlot{order: 10, result: NewTokenResultBlocked(be)})
	sc.AddRuleCheckSlot(&fixedRuleCheckSlot{order: 20, result: NewTokenResultPass()})

	stat := &recordingStatSlot{order: 10}
	sc.AddStatSlot(stat)

	res := GetResource("R", EntryTypeIn)
	goCtx := NewContext("c", "", nil)
	e, result := sc.DoEntry(res, goCtx, 1, nil)

	if !result.IsBlocked() || result.BlockError() != be {
		t.Fatalf("expected the first blocking RuleCheckSlot's result to win, got %+v", result)
	}
	if e != nil {
		t.Fatal("expected a nil *Entry on block")
	}
	if stat.blocked != 1 || stat.passed != 0 {
		t.Fatalf("expected OnEntryBlocked called once and OnEntryPassed never, got blocked=%d passed=%d", stat.blocked, stat.passed)
	}
}

func TestShouldWaitResultIsNotOverriddenByResetToPass(t *testing.T) {
	sc := NewSlotChain(flowclock.NewFake(0))
	sc.AddRuleCheckSlot(&fixedRuleCheckSlot{order: 10, result: NewTokenResultShouldWait(25)})

	stat := &recordingStatSlot{order: 10}
	sc.AddStatSlot(stat)

	res := GetResource("R", EntryTypeIn)
	goCtx := NewContext("c", "", nil)
	e, result := sc.DoEntryWithPriority(res, goCtx, 1, nil)

	if !result.IsShouldWait() || result.WaitMs() != 25 {
		t.Fatalf("expected a should-wait result to survive untouched, got %+v", result)
	}
	if e == nil {
		t.Fatal("expected a non-nil *Entry for a should-wait (admitted) result")
	}
	if stat.passed != 1 {
		t.Fatalf("expected OnEntryPassed to fire for a should-wait admission, got %d", stat.passed)
	}
}

func TestEntryExitRunsOnCompletedOnlyOncePerPass(t *testing.T) {
	sc := NewSlotChain(flowclock.NewFake(0))
	stat := &recordingStatSlot{order: 10}
	sc.AddStatSlot(stat)

	res := GetResource("R", EntryTypeIn)
	goCtx := NewContext("c", "", nil)
	e, result := sc.DoEntry(res, goCtx, 1, nil)
	if !result.IsPass() {
		t.Fatalf("expected Pass, got %+v", result)
	}
	e.Exit(5, 1, nil)

	if stat.completed != 1 {
		t.Fatalf("expected OnCompleted called exactly once, got %d", stat.completed)
	}
}

func TestPanicInRuleCheckSlotIsRecoveredAsPass(t *testing.T) {
	sc := NewSlotChain(flowclock.NewFake(0))
	sc.AddRuleCheckSlot(&panickyRuleCheckSlot{order: 10})

	res := GetResource("R", EntryTypeIn)
	goCtx := NewContext("c", "", nil)
	e, result := sc.DoEntry(res, goCtx, 1, nil)

	if result.IsBlocked() {
		t.Fatal("expected a panicking RuleCheckSlot to be recovered and treated as Pass, not Blocked")
	}
	if e == nil {
		t.Fatal("expected a non-nil Entry once the panic is recovered as Pass")
	}
}

func TestNestedEntriesFormParentChildChain(t *testing.T) {
	sc := NewSlotChain(flowclock.NewFake(0))
	outerRes := GetResource("Outer", EntryTypeIn)
	innerRes := GetResource("Inner", EntryTypeIn)
	goCtx := NewContext("c", "", nil)

	outer, _ := sc.DoEntry(outerRes, goCtx, 1, nil)
	inner, _ := sc.DoEntry(innerRes, goCtx, 1, nil)

	if inner.Parent() != outer {
		t.Fatal("expected the inner Entry's parent to be the outer Entry")
	}
	if goCtx.CurEntry() != inner {
		t.Fatal("expected the Context's current Entry to be the innermost one")
	}

	inner.Exit(0, 1, nil)
	if goCtx.CurEntry() != outer {
		t.Fatal("expected exiting the inner Entry to restore the outer Entry as current")
	}
	outer.Exit(0, 1, nil)
	if goCtx.CurEntry() != nil {
		t.Fatal("expected exiting the outermost Entry to clear the Context's current Entry")
	}
}
