package flow

import (
	"context"
	"testing"

	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flowclock"
	"github.com/flowgate-io/flowcore/statnode"
)

// fakeWarmUpNode lets a test drive PreviousPassQps independently of the
// live PassQps a real StatisticNode reports, by shadowing the embedded
// method — everything else (PassQps, AddPassRequest, ...) still comes from
// the real node.
type fakeWarmUpNode struct {
	*statnode.StatisticNode
	previousQps float64
}

func (f *fakeWarmUpNode) PreviousPassQps() float64 { return f.previousQps }

// TestWarmUpSyncTokensUsesPreviousWindowNotLiveAggregate reproduces
// spec.md §9's Open Question: WarmUpController's token-refill cadence
// reads the previous fully-closed window's rate, not the live aggregate —
// so a node with busy live traffic but a quiet previous window still
// refills, which a PassQps-fed syncTokens would not do.
func TestWarmUpSyncTokensUsesPreviousWindowNotLiveAggregate(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	rule := &Rule{Resource: "R", ControlBehavior: BehaviorWarmUp, Count: 9, WarmUpPeriodSec: 5}
	ctrl := NewWarmUpController(rule, clock)
	node := &fakeWarmUpNode{StatisticNode: statnode.NewStatisticNode(config.Default().Statistic, clock)}

	ctrl.mu.Lock()
	ctrl.storedTokens = ctrl.warningToken
	ctrl.lastFilledMs = clock.NowMillis() - 1000
	before := ctrl.storedTokens
	ctrl.mu.Unlock()

	// Live traffic looks busy right now...
	node.AddPassRequest(20)
	// ...but the previous, fully-closed bucket recorded nothing: the
	// quiet-period boundary the Open Question calls out.
	node.previousQps = 0

	ctrl.CanPass(context.Background(), node, 1, false)

	ctrl.mu.Lock()
	after := ctrl.storedTokens
	ctrl.mu.Unlock()
	if after <= before {
		t.Fatalf("expected syncTokens to refill off previousQps=0 despite live traffic, storedTokens %v -> %v", before, after)
	}
}

// TestWarmUpSyncTokensDrainsWhenPreviousWindowBusy is the mid-burst
// counterpart: a previous window that was itself over the cold-factor
// threshold must not refill, even though the live aggregate also reads
// busy — the two reads agree here, unlike the quiet-period test above —
// and its pass rate is drained from storedTokens instead.
func TestWarmUpSyncTokensDrainsWhenPreviousWindowBusy(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	rule := &Rule{Resource: "R", ControlBehavior: BehaviorWarmUp, Count: 9, WarmUpPeriodSec: 5}
	ctrl := NewWarmUpController(rule, clock)
	node := &fakeWarmUpNode{StatisticNode: statnode.NewStatisticNode(config.Default().Statistic, clock)}

	ctrl.mu.Lock()
	ctrl.storedTokens = ctrl.warningToken
	ctrl.lastFilledMs = clock.NowMillis() - 1000
	before := ctrl.storedTokens
	ctrl.mu.Unlock()

	node.previousQps = rule.Count // at/above count/coldFactor, no refill

	ctrl.CanPass(context.Background(), node, 1, false)

	ctrl.mu.Lock()
	after := ctrl.storedTokens
	ctrl.mu.Unlock()
	if after != before-rule.Count {
		t.Fatalf("expected storedTokens to drain by the busy previous window's rate without refilling, got %v -> %v", before, after)
	}
}
