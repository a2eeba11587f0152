package base

import (
	"testing"

	"github.com/flowgate-io/flowcore/errs"
)

func TestNewTokenResultPassIsPass(t *testing.T) {
	r := NewTokenResultPass()
	if !r.IsPass() || r.IsBlocked() || r.IsShouldWait() {
		t.Fatalf("expected a fresh TokenResult to be Pass-only, got status=%v", r.Status())
	}
}

func TestBlockedWithSetsBlockErrorAndClearsWait(t *testing.T) {
	r := NewTokenResultPass()
	be := errs.New(errs.BlockTypeFlow, "R", nil)
	r.ShouldWaitFor(100)
	r.BlockedWith(be)

	if !r.IsBlocked() {
		t.Fatal("expected IsBlocked after BlockedWith")
	}
	if r.BlockError() != be {
		t.Fatal("expected BlockError() to return the exact error passed in")
	}
	if r.WaitMs() != 0 {
		t.Fatalf("expected WaitMs reset to 0 once blocked, got %d", r.WaitMs())
	}
}

func TestShouldWaitForSetsWaitMsAndClearsBlockError(t *testing.T) {
	r := NewTokenResultPass()
	r.BlockedWith(errs.New(errs.BlockTypeSystem, "R", nil))
	r.ShouldWaitFor(42)

	if !r.IsShouldWait() {
		t.Fatal("expected IsShouldWait after ShouldWaitFor")
	}
	if r.WaitMs() != 42 {
		t.Fatalf("expected WaitMs()==42, got %d", r.WaitMs())
	}
	if r.BlockError() != nil {
		t.Fatal("expected BlockError cleared once transitioned to ShouldWait")
	}
}

func TestResetToPassClearsEverything(t *testing.T) {
	r := NewTokenResultPass()
	r.BlockedWith(errs.New(errs.BlockTypeAuthority, "R", nil))
	r.ResetToPass()

	if !r.IsPass() {
		t.Fatal("expected ResetToPass to restore Pass status")
	}
	if r.WaitMs() != 0 || r.BlockError() != nil {
		t.Fatalf("expected waitMs/blockErr cleared, got waitMs=%d blockErr=%v", r.WaitMs(), r.BlockError())
	}
}

func TestNewTokenResultBlockedAndShouldWaitConstructors(t *testing.T) {
	be := errs.New(errs.BlockTypeDegrade, "R", nil)
	blocked := NewTokenResultBlocked(be)
	if !blocked.IsBlocked() || blocked.BlockError() != be {
		t.Fatal("expected NewTokenResultBlocked to produce a blocked result carrying the given error")
	}

	waiting := NewTokenResultShouldWait(17)
	if !waiting.IsShouldWait() || waiting.WaitMs() != 17 {
		t.Fatal("expected NewTokenResultShouldWait to produce a should-wait result carrying the given waitMs")
	}
}
