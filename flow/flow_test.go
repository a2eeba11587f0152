package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/cluster"
	"github.com/flowgate-io/flowcore/config"
	flowerrs "github.com/flowgate-io/flowcore/errs"
	"github.com/flowgate-io/flowcore/flowclock"
	"github.com/flowgate-io/flowcore/statnode"
)

var errTransport = errors.New("cluster: transport unavailable")

func newTestChain(registry *statnode.Registry, mgr *Manager, clock flowclock.Clock) *base.SlotChain {
	chain := base.NewSlotChain(clock)
	chain.AddStatPrepareSlot(&statnode.NodeSelectorSlot{Registry: registry})
	chain.AddStatPrepareSlot(&statnode.ClusterBuilderSlot{Registry: registry})
	chain.AddStatSlot(&statnode.StatisticSlot{})
	checker := NewChecker(registry)
	chain.AddRuleCheckSlot(NewSlot(mgr, checker, clock))
	return chain
}

// TestDefaultRejectThreeCallsTwoAdmitted reproduces end-to-end scenario 1:
// rule {resource=R, grade=qps, count=2}; three calls admit exactly two and
// reject the third. Calls are issued sequentially (rather than raced across
// goroutines) so the test is deterministic: StatisticSlot only publishes a
// call's own pass after its admission decision, so concurrent calls racing
// the read would make the 2-of-3 split a property of scheduling, not of the
// algorithm under test. The second call is issued one bucket later (the
// node's window is sampleCount=2 over 1000ms, i.e. 500ms buckets) so its
// curUsed reads the prior bucket's full-interval rate rather than the
// narrower transient window a same-instant second call would see.
func TestDefaultRejectThreeCallsTwoAdmitted(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	registry := statnode.NewRegistry(config.Default().Statistic, clock)
	mgr := NewManager()
	if err := mgr.LoadRules([]*Rule{{Resource: "R", Grade: GradeQps, Count: 2}}); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	chain := newTestChain(registry, mgr, clock)
	res := base.GetResource("R", base.EntryTypeIn)
	goCtx := base.NewContext("test-ctx", "", nil)

	admitted, blocked := 0, 0
	attempt := func() {
		e, result := chain.DoEntry(res, goCtx, 1, nil)
		if result.IsBlocked() {
			blocked++
			if !flowerrs.IsBlockError(result.BlockError()) {
				t.Error("expected a *BlockError")
			}
		} else {
			admitted++
			e.Exit(1, 1, nil)
		}
	}

	attempt()
	clock.Advance(500 * time.Millisecond)
	attempt()
	attempt()

	if admitted != 2 || blocked != 1 {
		t.Fatalf("expected 2 admitted / 1 blocked, got %d admitted / %d blocked", admitted, blocked)
	}
}

// TestLeakyPacingAbsorbsBurst reproduces end-to-end scenario 2: rule
// {count=5, behavior=rateLimit, maxQueueingMs=400}. A burst of calls at
// t=0 should admit immediately, pace subsequent ones ~200ms apart, and
// reject once the computed wait exceeds maxQueueingMs.
func TestLeakyPacingAbsorbsBurst(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	rule := &Rule{Resource: "R", ControlBehavior: BehaviorRateLimit, Count: 5, MaxQueueingMs: 400}
	ctrl := NewRateLimiterController(rule, clock)
	var slept []time.Duration
	ctrl.sleep = func(ctx context.Context, d time.Duration) bool { slept = append(slept, d); return true }

	var admits int
	for i := 0; i < 10; i++ {
		result := ctrl.CanPass(context.Background(), nil, 1, false)
		if result.IsPass() {
			admits++
		}
	}
	// costTime per call = 200ms; maxQueueingMs=400 allows ~3 queued calls
	// beyond the immediate one before rejecting.
	if admits < 2 || admits > 4 {
		t.Fatalf("expected roughly 2-4 admits within the 400ms queue budget, got %d", admits)
	}
}

// TestPrioritizedCallBorrowsFutureCapacity reproduces end-to-end scenario
// 6: rule {count=10, grade=qps}, the node already saturated for the
// current window, a prioritized call should still succeed (ShouldWait)
// with a bounded wait, and the borrowed pass should be visible in
// GetWindowPass immediately — before real time reaches the future bucket
// it was borrowed from.
func TestPrioritizedCallBorrowsFutureCapacity(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	node := statnode.NewStatisticNode(config.Default().Statistic, clock)
	// Sustained load of 10 qps: 5 passes in the previous 500ms bucket and 5
	// in the current one, with the prioritized call arriving mid-bucket.
	node.AddPassRequest(5)
	clock.Advance(500 * time.Millisecond)
	node.AddPassRequest(5)
	clock.Advance(250 * time.Millisecond)

	rule := &Rule{Resource: "R", Grade: GradeQps, Count: 10}
	ctrl := NewDefaultController(rule, clock)
	var slept time.Duration
	ctrl.sleep = func(ctx context.Context, d time.Duration) bool { slept = d; return true }

	now := clock.NowMillis()
	result := ctrl.CanPass(context.Background(), node, 1, true)
	if !result.IsShouldWait() {
		t.Fatalf("expected a prioritized call over a saturated qps-graded node to succeed via ShouldWait, got status=%v blockErr=%v", result.Status(), result.BlockError())
	}
	if result.WaitMs() <= 0 || result.WaitMs() > 1000 {
		t.Fatalf("expected waitMs in (0, windowRemaining], got %d", result.WaitMs())
	}
	if slept != time.Duration(result.WaitMs())*time.Millisecond {
		t.Fatalf("expected the controller to sleep exactly waitMs, got %v", slept)
	}

	// The fake clock never moved past now: the future bucket already holds
	// exactly the one borrowed pass.
	windowPass := node.GetWindowPass(now + result.WaitMs())
	if windowPass != 1 {
		t.Fatalf("expected the borrowed pass to already be visible in GetWindowPass, got %d", windowPass)
	}
}

func TestClusterFallbackToLocalOnTransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockClient := cluster.NewMockTokenClient(ctrl)
	mockClient.EXPECT().RequestToken(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(cluster.Result{}, errTransport)

	clock := flowclock.NewFake(1_000_000)
	registry := statnode.NewRegistry(config.Default().Statistic, clock)
	mgr := NewManager()
	rule := &Rule{Resource: "R", Grade: GradeQps, Count: 100, ClusterMode: true, ClusterFlowId: 1, FallbackToLocalOnError: true}
	if err := mgr.LoadRules([]*Rule{rule}); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	checker := NewChecker(registry)
	slot := NewSlot(mgr, checker, clock)
	slot.SetClusterClient(mockClient)

	chain := base.NewSlotChain(clock)
	chain.AddStatPrepareSlot(&statnode.NodeSelectorSlot{Registry: registry})
	chain.AddStatPrepareSlot(&statnode.ClusterBuilderSlot{Registry: registry})
	chain.AddStatSlot(&statnode.StatisticSlot{})
	chain.AddRuleCheckSlot(slot)

	res := base.GetResource("R", base.EntryTypeIn)
	goCtx := base.NewContext("cluster-ctx", "", nil)
	_, result := chain.DoEntry(res, goCtx, 1, nil)
	if !result.IsPass() {
		t.Fatalf("expected local fallback to admit under the rule's 100 qps threshold, got %v", result.Status())
	}
}
