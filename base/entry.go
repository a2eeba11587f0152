package base

import (
	"context"
	"sync"

	"github.com/flowgate-io/flowcore/flowclock"
	"github.com/flowgate-io/flowcore/flowlog"
)

// SentinelInput carries one invocation's raw arguments through the chain,
// named for parity with the upstream field the teacher's datasource
// package ultimately feeds (hotspot.Rule.ParamIndex indexes into this).
type SentinelInput struct {
	BatchCount int64
	Args       []interface{}
	// Prioritized marks an entryWithPriority() acquisition: it permits
	// DefaultController's borrow-future-capacity branch and
	// FlowRuleChecker's cluster SHOULD_WAIT handling (SPEC_FULL.md §4.5).
	Prioritized bool
	Attachments map[interface{}]interface{}
	// GoContext is the caller's cancellation signal, read by flow's
	// sleeping Controllers: cancellation during a controller's sleep is
	// treated as admit-and-return, except RateLimiterController which
	// rejects instead (SPEC_FULL.md §5, spec.md §9).
	GoContext context.Context
}

func newEmptySentinelInput() *SentinelInput {
	return &SentinelInput{BatchCount: 1, Args: make([]interface{}, 0), Attachments: make(map[interface{}]interface{}), GoContext: context.Background()}
}

// Entry is one active resource acquisition (SPEC_FULL.md §3): nested in a
// linked parent chain, carrying the DefaultNode for that acquisition plus
// the optional origin/cluster nodes ClusterBuilderSlot assigns.
type Entry struct {
	resource    *ResourceWrapper
	ctx         *Context
	parent      *Entry
	child       *Entry
	node        Node // DefaultNode
	originNode  Node
	clusterNode Node
	createTime  int64
	chain       *SlotChain
	entryCtx    *EntryContext
	err         error
}

func (e *Entry) Resource() *ResourceWrapper { return e.resource }
func (e *Entry) Context() *Context          { return e.ctx }
func (e *Entry) Parent() *Entry             { return e.parent }
func (e *Entry) Child() *Entry              { return e.child }
func (e *Entry) CurNode() Node              { return e.node }
func (e *Entry) SetCurNode(n Node)          { e.node = n }
func (e *Entry) OriginNode() Node           { return e.originNode }
func (e *Entry) SetOriginNode(n Node)       { e.originNode = n }
func (e *Entry) ClusterNode() Node          { return e.clusterNode }
func (e *Entry) SetClusterNode(n Node)      { e.clusterNode = n }
func (e *Entry) CreateTime() int64          { return e.createTime }
func (e *Entry) Err() error                 { return e.err }
func (e *Entry) SetError(err error)         { e.err = err }

// Exit unwinds the chain in reverse (StatSlot.OnCompleted for every stat
// slot, recording RT) and pops this Entry off its Context, restoring the
// parent as the Context's current Entry. Exits must be LIFO; an
// out-of-order Exit is a programming misuse (SPEC_FULL.md §5/§7) that is
// logged and best-effort unwound rather than corrupting the stack.
func (e *Entry) Exit(rt int64, count int64, err error) {
	if err != nil {
		e.err = err
	}
	if e.chain != nil && e.entryCtx != nil {
		e.entryCtx.rt = rt
		e.entryCtx.count = count
		e.chain.exit(e.entryCtx)
		releaseEntryContext(e.entryCtx)
		e.entryCtx = nil
	}

	if e.ctx == nil {
		return
	}
	cur := e.ctx.CurEntry()
	if cur != e {
		flowlog.Errorf("flowcore: out-of-order Entry.Exit for resource=%s", e.resource.Name)
		// Mismatched exit order: best-effort unwind by walking up from
		// whatever is current until we find this entry, or give up and
		// just restore our own parent (never corrupt further).
		for p := cur; p != nil; p = p.parent {
			if p == e {
				break
			}
		}
	}
	e.ctx.setCurEntry(e.parent)
	if e.parent != nil {
		e.parent.child = nil
	}
}

// EntryContext is the pooled payload threaded through one SlotChain pass,
// bundling the Entry, its raw Input, and the shared, mutable
// RuleCheckResult every slot reads/writes — mirrors the upstream
// EntryContext's role (see other_examples slot_chain.go).
type EntryContext struct {
	startTime       int64
	rt              int64
	count           int64
	entry           *Entry
	RuleCheckResult *TokenResult
	Input           *SentinelInput
	Data            map[interface{}]interface{}
	err             error
}

func NewEmptyEntryContext() *EntryContext {
	return &EntryContext{
		RuleCheckResult: NewTokenResultPass(),
		Input:           newEmptySentinelInput(),
		Data:            make(map[interface{}]interface{}),
	}
}

func (c *EntryContext) Reset() {
	c.startTime = 0
	c.rt = 0
	c.count = 0
	c.entry = nil
	c.RuleCheckResult.ResetToPass()
	c.Input.BatchCount = 1
	c.Input.Prioritized = false
	c.Input.Args = c.Input.Args[:0]
	for k := range c.Input.Attachments {
		delete(c.Input.Attachments, k)
	}
	for k := range c.Data {
		delete(c.Data, k)
	}
	c.Input.GoContext = context.Background()
	c.err = nil
}

func (c *EntryContext) Entry() *Entry        { return c.entry }
func (c *EntryContext) SetEntry(e *Entry)    { c.entry = e }
func (c *EntryContext) SetError(err error)   { c.err = err }
func (c *EntryContext) Err() error           { return c.err }
func (c *EntryContext) StartTime() int64     { return c.startTime }
func (c *EntryContext) Rt() int64            { return c.rt }
func (c *EntryContext) Count() int64         { return c.count }
func (c *EntryContext) IsBlocked() bool      { return c.RuleCheckResult != nil && c.RuleCheckResult.IsBlocked() }

var entryCtxPool = sync.Pool{
	New: func() interface{} { return NewEmptyEntryContext() },
}

func acquireEntryContext(clock flowclock.Clock) *EntryContext {
	c := entryCtxPool.Get().(*EntryContext)
	c.startTime = clock.NowMillis()
	return c
}

func releaseEntryContext(c *EntryContext) {
	c.Reset()
	entryCtxPool.Put(c)
}
