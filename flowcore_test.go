package flowcore

import (
	"testing"

	"github.com/flowgate-io/flowcore/authority"
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/config"
	flowerrs "github.com/flowgate-io/flowcore/errs"
)

// TestEntryAuthorityRuleBlocksMismatchedOrigin exercises the public Entry
// facade end-to-end against a clock-independent rule kind (authority
// exact-match), so the outcome doesn't depend on real-time window
// boundaries the way flow/hotspot scenarios would against the package's
// real flowclock.System wiring.
func TestEntryAuthorityRuleBlocksMismatchedOrigin(t *testing.T) {
	if err := Init(config.Default()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	authority.Default.LoadRules([]*authority.Rule{
		{Resource: "flowcore-test-authority", LimitApp: "good", Strategy: authority.White},
	})

	e, result := Entry("flowcore-test-authority", WithOrigin("good"))
	if result.IsBlocked() {
		t.Fatalf("expected origin \"good\" to be admitted, got blocked: %v", result.BlockError())
	}
	e.Exit(1, 1, nil)
	(base.ContextUtil{}).Exit()

	_, result2 := Entry("flowcore-test-authority", WithOrigin("bad"))
	if !result2.IsBlocked() {
		t.Fatalf("expected origin \"bad\" to be blocked")
	}
	be := result2.BlockError()
	if be == nil || be.BlockType != flowerrs.BlockTypeAuthority {
		t.Errorf("expected a BlockTypeAuthority *BlockError, got %v", result2.BlockError())
	}
	(base.ContextUtil{}).Exit()
}

// TestLoadCircuitBreakerRulesWiresAgainstRegistry confirms
// LoadCircuitBreakerRules can be called right after Init without the
// caller resolving a Registry themselves: loading an empty rule set
// succeeds. It does not check which ClusterNode a breaker reads.
func TestLoadCircuitBreakerRulesWiresAgainstRegistry(t *testing.T) {
	if err := Init(config.Default()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := LoadCircuitBreakerRules(nil); err != nil {
		t.Fatalf("LoadCircuitBreakerRules(nil): %v", err)
	}
}
