package circuitbreaker

import (
	"testing"
	"time"

	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flowclock"
	"github.com/flowgate-io/flowcore/statnode"
)

// TestAvgRtTripAfterFiveSlowCalls reproduces end-to-end scenario 3: rule
// {grade=avgRt, count=50ms, timeWindow=2s}; 10 consecutive calls at
// rt=60ms admit the first 5, reject call 6; after the window elapses the
// breaker resets.
func TestAvgRtTripAfterFiveSlowCalls(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	node := statnode.NewStatisticNode(config.Default().Statistic, clock)

	rule := &Rule{ID: "r1", Resource: "svc", Grade: GradeAvgRt, Count: 50, TimeWindowSec: 2}
	b, err := NewBreaker(rule, node)
	if err != nil {
		t.Fatalf("NewBreaker: %v", err)
	}
	var tripped func()
	b.timer = func(d time.Duration, f func()) { tripped = f } // capture instead of firing

	admitted := 0
	for i := 0; i < 10; i++ {
		if b.TryPass() {
			admitted++
			node.AddRtAndSuccess(60, 1)
		}
		clock.Advance(time.Millisecond)
	}
	if admitted != 5 {
		t.Fatalf("expected 5 admitted before trip, got %d", admitted)
	}
	if !b.IsOpen() {
		t.Fatal("expected breaker open after 5 consecutive slow calls")
	}
	if tripped == nil {
		t.Fatal("expected reset timer to have been armed")
	}

	tripped() // simulate the 2s window elapsing
	if b.IsOpen() {
		t.Fatal("expected breaker closed after simulated reset timer fire")
	}
	if !b.TryPass() {
		t.Error("expected first call after reset to be re-evaluated and admitted")
	}
}

func TestExceptionRatioRequiresMinimumVolume(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	node := statnode.NewStatisticNode(config.Default().Statistic, clock)
	rule := &Rule{ID: "r2", Resource: "svc", Grade: GradeExceptionRatio, Count: 0.5, TimeWindowSec: 1}
	b, _ := NewBreaker(rule, node)

	node.AddPassRequest(2)
	node.AddRtAndSuccess(1, 1)
	node.IncreaseExceptionQps(1)

	if !b.TryPass() {
		t.Error("expected admit below the minimum-volume floor of 5 total qps")
	}
}
