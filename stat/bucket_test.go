package stat

import "testing"

func TestNewEmptyBucketStartsAtZeroWithSentinelMinRt(t *testing.T) {
	b := newEmptyBucket()
	if b.Pass() != 0 || b.Block() != 0 || b.Exception() != 0 || b.Success() != 0 || b.Rt() != 0 || b.OccupiedPass() != 0 {
		t.Fatalf("expected a fresh bucket to be all-zero, got %+v", b)
	}
	if got := b.MinRt(); got != 0 {
		t.Fatalf("expected MinRt() to surface 0 rather than the MaxInt64 sentinel when untouched, got %d", got)
	}
}

func TestBucketAddersAccumulate(t *testing.T) {
	b := newEmptyBucket()
	b.AddPass(3)
	b.AddPass(2)
	b.AddBlock(1)
	b.AddException(4)
	b.AddSuccess(5)
	b.AddRt(100)
	b.AddRt(50)
	b.AddOccupiedPass(7)

	if b.Pass() != 5 {
		t.Fatalf("Pass() = %d, want 5", b.Pass())
	}
	if b.Block() != 1 {
		t.Fatalf("Block() = %d, want 1", b.Block())
	}
	if b.Exception() != 4 {
		t.Fatalf("Exception() = %d, want 4", b.Exception())
	}
	if b.Success() != 5 {
		t.Fatalf("Success() = %d, want 5", b.Success())
	}
	if b.Rt() != 150 {
		t.Fatalf("Rt() = %d, want 150", b.Rt())
	}
	if b.OccupiedPass() != 7 {
		t.Fatalf("OccupiedPass() = %d, want 7", b.OccupiedPass())
	}
}

func TestUpdateMinRtKeepsSmallestObserved(t *testing.T) {
	b := newEmptyBucket()
	b.UpdateMinRt(50)
	b.UpdateMinRt(20)
	b.UpdateMinRt(80)
	if got := b.MinRt(); got != 20 {
		t.Fatalf("MinRt() = %d, want 20", got)
	}
}

func TestResetZeroesEveryCounterAndRestoresMinRtSentinel(t *testing.T) {
	b := newEmptyBucket()
	b.AddPass(1)
	b.AddBlock(1)
	b.AddException(1)
	b.AddSuccess(1)
	b.AddRt(1)
	b.AddOccupiedPass(1)
	b.UpdateMinRt(10)

	b.Reset()

	if b.Pass() != 0 || b.Block() != 0 || b.Exception() != 0 || b.Success() != 0 || b.Rt() != 0 || b.OccupiedPass() != 0 {
		t.Fatalf("expected Reset to zero every counter, got %+v", b)
	}
	if got := b.MinRt(); got != 0 {
		t.Fatalf("expected MinRt() back to the untouched sentinel value of 0, got %d", got)
	}
}

func TestBucketGetDispatchesByField(t *testing.T) {
	b := newEmptyBucket()
	b.AddPass(1)
	b.AddBlock(2)
	b.AddException(3)
	b.AddSuccess(4)
	b.AddRt(5)
	b.AddOccupiedPass(6)

	cases := map[BucketField]int64{
		FieldPass:         1,
		FieldBlock:        2,
		FieldException:    3,
		FieldSuccess:      4,
		FieldRt:           5,
		FieldOccupiedPass: 6,
	}
	for f, want := range cases {
		if got := b.get(f); got != want {
			t.Errorf("get(%d) = %d, want %d", f, got, want)
		}
	}
}
