package statnode

import (
	"testing"
	"time"

	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flowclock"
)

func TestGCRemovesOnlyStaleIdleClusterNodes(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	reg := NewRegistry(config.Default().Statistic, clock)

	reg.ClusterNodeFor("stale")
	active := reg.ClusterNodeFor("active")
	inFlight := reg.ClusterNodeFor("in-flight")
	inFlight.IncreaseThreadNum()

	clock.Advance(10 * time.Minute)

	active.AddPassRequest(1)
	reg.ClusterNodeFor("active")

	removed := reg.GC(5 * 60 * 1000)
	if removed != 1 {
		t.Fatalf("expected exactly 1 node removed, got %d", removed)
	}

	if _, ok := reg.ClusterNodeIfExists("stale"); ok {
		t.Fatalf("expected \"stale\" to be GC'd")
	}
	if _, ok := reg.ClusterNodeIfExists("active"); !ok {
		t.Fatalf("expected \"active\" (recently touched) to survive GC")
	}
	if _, ok := reg.ClusterNodeIfExists("in-flight"); !ok {
		t.Fatalf("expected \"in-flight\" (nonzero CurThreadNum) to survive GC regardless of touch time")
	}
}

func TestGCNoopWhenNothingStale(t *testing.T) {
	clock := flowclock.NewFake(1_000_000)
	reg := NewRegistry(config.Default().Statistic, clock)
	reg.ClusterNodeFor("fresh")

	if removed := reg.GC(5 * 60 * 1000); removed != 0 {
		t.Fatalf("expected 0 removed when nothing is stale, got %d", removed)
	}
}
