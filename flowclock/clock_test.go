package flowclock

import (
	"testing"
	"time"
)

func TestSystemClockAdvancesWithWallTime(t *testing.T) {
	first := System.NowMillis()
	time.Sleep(5 * time.Millisecond)
	second := System.NowMillis()
	if second <= first {
		t.Fatalf("expected System.NowMillis() to advance, got %d then %d", first, second)
	}
}

func TestFakeClockStartsAtGivenInstant(t *testing.T) {
	f := NewFake(1_000)
	if got := f.NowMillis(); got != 1_000 {
		t.Fatalf("expected 1000, got %d", got)
	}
}

func TestFakeClockAdvanceAccumulates(t *testing.T) {
	f := NewFake(0)
	if got := f.Advance(250 * time.Millisecond); got != 250 {
		t.Fatalf("expected 250 after first advance, got %d", got)
	}
	if got := f.Advance(750 * time.Millisecond); got != 1000 {
		t.Fatalf("expected 1000 after second advance, got %d", got)
	}
	if got := f.NowMillis(); got != 1000 {
		t.Fatalf("NowMillis should reflect accumulated advances, got %d", got)
	}
}

func TestFakeClockSetPinsAbsoluteValue(t *testing.T) {
	f := NewFake(500)
	f.Set(9_999)
	if got := f.NowMillis(); got != 9_999 {
		t.Fatalf("expected Set to pin the clock to 9999, got %d", got)
	}
}
