package hotspot

import (
	"testing"
	"time"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/flowclock"
)

func newTestChain(slot *Slot) *base.SlotChain {
	chain := base.NewSlotChain(nil)
	chain.AddRuleCheckSlot(slot)
	chain.AddStatSlot(NewStatSlot(slot))
	return chain
}

// TestQpsGradeBlocksHotValue exercises the qps-grade path: a rule admits
// at most 2 calls/sec carrying a given argument value at index 0. The
// second call for that value is issued one bucket later (see
// flow_test.go's TestDefaultRejectThreeCallsTwoAdmitted for why a
// same-instant second call would over-read the transient window), so
// the third same-value call — still in that bucket — is the one that
// trips the threshold. A different value is unaffected throughout.
func TestQpsGradeBlocksHotValue(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	mgr := NewManager()
	rule := &Rule{Resource: "R", ParamIndex: 0, Grade: GradeQps, Count: 2}
	if err := mgr.LoadRules([]*Rule{rule}); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	slot := NewSlot(mgr, clock, 2, 1000)
	chain := newTestChain(slot)
	res := base.GetResource("R", base.EntryTypeIn)
	goCtx := base.NewContext("test-ctx", "", nil)

	attempt := func(value string) *base.TokenResult {
		e, result := chain.DoEntry(res, goCtx, 1, []interface{}{value})
		if !result.IsBlocked() {
			e.Exit(1, 1, nil)
		}
		return result
	}

	if r := attempt("vip-1"); !r.IsPass() {
		t.Fatal("first call for vip-1 should pass")
	}
	if r := attempt("other"); !r.IsPass() {
		t.Fatal("a different value must not be affected by vip-1's counters")
	}

	clock.Advance(500 * time.Millisecond)
	if r := attempt("vip-1"); !r.IsPass() {
		t.Fatal("second vip-1 call, one bucket later, should pass")
	}
	if r := attempt("vip-1"); !r.IsBlocked() {
		t.Fatal("third vip-1 call within the same bucket should be blocked")
	} else if r.BlockError() == nil || r.BlockError().Value != "vip-1" {
		t.Errorf("expected BlockError.Value=vip-1, got %#v", r.BlockError())
	}
}

// TestExclusionItemOverridesThreshold exercises the per-value threshold
// override of SPEC_FULL.md §3/§4.9: value "bulk" gets its own higher
// threshold while other values keep the rule's blanket Count.
func TestExclusionItemOverridesThreshold(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	mgr := NewManager()
	rule := &Rule{
		Resource:       "R",
		ParamIndex:     0,
		Grade:          GradeQps,
		Count:          1,
		ExclusionItems: map[string]int64{"bulk": 3},
	}
	if err := mgr.LoadRules([]*Rule{rule}); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	slot := NewSlot(mgr, clock, 2, 1000)
	chain := newTestChain(slot)
	res := base.GetResource("R", base.EntryTypeIn)
	goCtx := base.NewContext("test-ctx", "", nil)

	attempt := func(value string) *base.TokenResult {
		e, result := chain.DoEntry(res, goCtx, 1, []interface{}{value})
		if !result.IsBlocked() {
			e.Exit(1, 1, nil)
		}
		return result
	}

	if r := attempt("bulk"); !r.IsPass() {
		t.Fatal("first bulk call should pass under its exclusion threshold of 3")
	}
	if r := attempt("normal"); !r.IsPass() {
		t.Fatal("first normal-value call should pass under the blanket Count of 1")
	}
	if r := attempt("bulk"); !r.IsPass() {
		t.Fatal("second bulk call should still pass under its exclusion threshold of 3")
	}
	if r := attempt("normal"); !r.IsBlocked() {
		t.Fatal("second normal-value call should exceed the blanket Count of 1")
	}
}

// TestThreadGradeTracksLiveConcurrency exercises the thread-grade path:
// curCount is the live in-flight count per value, incremented on entry
// and decremented on exit rather than a time-windowed rate.
func TestThreadGradeTracksLiveConcurrency(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	mgr := NewManager()
	rule := &Rule{Resource: "R", ParamIndex: 0, Grade: GradeThread, Count: 1}
	if err := mgr.LoadRules([]*Rule{rule}); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	slot := NewSlot(mgr, clock, 2, 1000)
	chain := newTestChain(slot)
	res := base.GetResource("R", base.EntryTypeIn)
	goCtx := base.NewContext("test-ctx", "", nil)

	e1, r1 := chain.DoEntry(res, goCtx, 1, []interface{}{"tenant-a"})
	if !r1.IsPass() {
		t.Fatal("first in-flight call for tenant-a should pass")
	}
	_, r2 := chain.DoEntry(res, goCtx, 1, []interface{}{"tenant-a"})
	if !r2.IsBlocked() {
		t.Fatal("second concurrent call for tenant-a should be blocked while the first is still open")
	}
	e1.Exit(1, 1, nil)

	e3, r3 := chain.DoEntry(res, goCtx, 1, []interface{}{"tenant-a"})
	if !r3.IsPass() {
		t.Fatal("after the first call exits, tenant-a should be admitted again")
	}
	e3.Exit(1, 1, nil)
}
