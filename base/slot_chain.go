package base

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/flowgate-io/flowcore/flowclock"
	"github.com/flowgate-io/flowcore/flowlog"
)

// BaseSlot is the common contract of every chain stage: Order defines the
// position slots of its kind sort into (ascending), mirroring the
// upstream slot-chain design (see other_examples' core/base/slot_chain.go).
type BaseSlot interface {
	Order() uint32
}

// StatPrepareSlot performs pre-check assembly (NodeSelector, ClusterBuilder):
// resolving/creating the nodes later slots and StatSlots will read and
// write. Must not block or panic.
type StatPrepareSlot interface {
	BaseSlot
	Prepare(ctx *EntryContext)
}

// RuleCheckSlot is one admission decider (Authority, System, ParamFlow,
// Flow, Degrade). Returning nil means "pass"; a non-nil blocked
// TokenResult short-circuits the remaining RuleCheckSlots.
type RuleCheckSlot interface {
	BaseSlot
	Check(ctx *EntryContext) *TokenResult
}

// StatSlot records outcomes after the RuleCheckSlots have decided
// (StatisticSlot, LogSlot). OnEntryPassed/OnEntryBlocked fire on entry;
// OnCompleted fires on exit, only for passed entries.
type StatSlot interface {
	BaseSlot
	OnEntryPassed(ctx *EntryContext)
	OnEntryBlocked(ctx *EntryContext, blockErr error)
	OnCompleted(ctx *EntryContext)
}

// SlotChain holds all slots of each kind, sorted by Order(), and runs the
// entry()/exit() lifecycle of SPEC_FULL.md §2.
type SlotChain struct {
	statPres   []StatPrepareSlot
	ruleChecks []RuleCheckSlot
	stats      []StatSlot
	clock      flowclock.Clock
}

func NewSlotChain(clock flowclock.Clock) *SlotChain {
	if clock == nil {
		clock = flowclock.System
	}
	return &SlotChain{clock: clock}
}

func (sc *SlotChain) AddStatPrepareSlot(s StatPrepareSlot) {
	sc.statPres = append(sc.statPres, s)
	sort.SliceStable(sc.statPres, func(i, j int) bool { return sc.statPres[i].Order() < sc.statPres[j].Order() })
}

func (sc *SlotChain) AddRuleCheckSlot(s RuleCheckSlot) {
	sc.ruleChecks = append(sc.ruleChecks, s)
	sort.SliceStable(sc.ruleChecks, func(i, j int) bool { return sc.ruleChecks[i].Order() < sc.ruleChecks[j].Order() })
}

func (sc *SlotChain) AddStatSlot(s StatSlot) {
	sc.stats = append(sc.stats, s)
	sort.SliceStable(sc.stats, func(i, j int) bool { return sc.stats[i].Order() < sc.stats[j].Order() })
}

// entry runs the full pipeline: StatPrepareSlots, then RuleCheckSlots
// (first block wins), then every StatSlot's OnEntryPassed/OnEntryBlocked.
func (sc *SlotChain) entry(ctx *EntryContext) (result *TokenResult) {
	defer func() {
		if r := recover(); r != nil {
			flowlog.Errorf("flowcore: internal panic in SlotChain.entry: %+v", r)
			ctx.SetError(errors.Errorf("%+v", r))
			ctx.RuleCheckResult.ResetToPass()
			result = ctx.RuleCheckResult
		}
	}()

	for _, s := range sc.statPres {
		s.Prepare(ctx)
	}

	var decided *TokenResult
	for _, s := range sc.ruleChecks {
		r := s.Check(ctx)
		if r == nil || r.IsPass() {
			continue
		}
		// Blocked and should-wait verdicts are both terminal: a should-wait
		// admission (borrowed future-bucket capacity) still must not be
		// overridden by ctx.RuleCheckResult.ResetToPass() below, since
		// StatisticSlot relies on IsShouldWait() to skip the thread-count
		// bump for that admission (SPEC_FULL.md §4.4/§4.5).
		decided = r
		break
	}
	if decided == nil {
		ctx.RuleCheckResult.ResetToPass()
	} else {
		ctx.RuleCheckResult = decided
	}

	rcr := ctx.RuleCheckResult
	for _, s := range sc.stats {
		if !rcr.IsBlocked() {
			s.OnEntryPassed(ctx)
		} else {
			s.OnEntryBlocked(ctx, rcr.BlockError())
		}
	}
	return rcr
}

// exit runs every StatSlot's OnCompleted in Order() order (only ever
// called for entries that passed; see Entry.Exit).
func (sc *SlotChain) exit(ctx *EntryContext) {
	defer func() {
		if r := recover(); r != nil {
			flowlog.Errorf("flowcore: internal panic in SlotChain.exit: %+v", r)
		}
	}()
	if ctx == nil || ctx.Entry() == nil {
		flowlog.Errorf("flowcore: EntryContext or Entry is nil in SlotChain.exit")
		return
	}
	if ctx.IsBlocked() {
		return
	}
	for _, s := range sc.stats {
		s.OnCompleted(ctx)
	}
}

// DoEntry is the top-level admission attempt used by the root API and by
// tests that want to drive a chain directly: it builds an Entry nested
// under ctx's current Entry (or the Context's EntranceNode if this is the
// outermost acquisition), runs the chain, and links the Entry into ctx on
// success. The returned *Entry is nil iff the TokenResult is blocked.
func (sc *SlotChain) DoEntry(resource *ResourceWrapper, goCtx *Context, batchCount int64, args []interface{}) (*Entry, *TokenResult) {
	return sc.doEntry(context.Background(), resource, goCtx, batchCount, false, args)
}

// DoEntryWithPriority is DoEntry for entryWithPriority() acquisitions: it
// marks the input as prioritized so DefaultController's borrow-future-
// capacity branch and the cluster SHOULD_WAIT path may engage
// (SPEC_FULL.md §4.5/§6).
func (sc *SlotChain) DoEntryWithPriority(resource *ResourceWrapper, goCtx *Context, batchCount int64, args []interface{}) (*Entry, *TokenResult) {
	return sc.doEntry(context.Background(), resource, goCtx, batchCount, true, args)
}

// DoEntryCtx is DoEntry with an explicit cancellation signal: cancelCtx is
// stashed on the Input and read by flow's sleeping Controllers, so that
// cancelling it during a controller's sleep interrupts the wait
// (SPEC_FULL.md §5).
func (sc *SlotChain) DoEntryCtx(cancelCtx context.Context, resource *ResourceWrapper, goCtx *Context, batchCount int64, args []interface{}) (*Entry, *TokenResult) {
	return sc.doEntry(cancelCtx, resource, goCtx, batchCount, false, args)
}

// DoEntryWithPriorityCtx is DoEntryWithPriority with an explicit
// cancellation signal; see DoEntryCtx.
func (sc *SlotChain) DoEntryWithPriorityCtx(cancelCtx context.Context, resource *ResourceWrapper, goCtx *Context, batchCount int64, args []interface{}) (*Entry, *TokenResult) {
	return sc.doEntry(cancelCtx, resource, goCtx, batchCount, true, args)
}

func (sc *SlotChain) doEntry(cancelCtx context.Context, resource *ResourceWrapper, goCtx *Context, batchCount int64, prioritized bool, args []interface{}) (*Entry, *TokenResult) {
	if cancelCtx == nil {
		cancelCtx = context.Background()
	}
	entryCtx := acquireEntryContext(sc.clock)
	entryCtx.Input.BatchCount = batchCount
	entryCtx.Input.Prioritized = prioritized
	entryCtx.Input.Args = append(entryCtx.Input.Args[:0], args...)
	entryCtx.Input.GoContext = cancelCtx

	e := &Entry{
		resource:   resource,
		ctx:        goCtx,
		parent:     goCtx.CurEntry(),
		chain:      sc,
		entryCtx:   entryCtx,
		createTime: entryCtx.startTime,
	}
	entryCtx.SetEntry(e)

	result := sc.entry(entryCtx)
	if result.IsBlocked() {
		// Detach the verdict before the pooled context is reset, so the
		// caller still sees it blocked.
		entryCtx.RuleCheckResult = NewTokenResultPass()
		releaseEntryContext(entryCtx)
		return nil, result
	}

	if e.parent != nil {
		e.parent.child = e
	}
	goCtx.setCurEntry(e)
	return e, result
}
