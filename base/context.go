package base

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// Context is the per-goroutine invocation scope of SPEC_FULL.md §3: a
// name, the goroutine's EntranceNode, the current (innermost) Entry, and
// an optional origin. A Context lives until ContextUtil.Exit releases it.
type Context struct {
	name         string
	origin       string
	entranceNode Node
	curEntry     *Entry
}

func NewContext(name, origin string, entranceNode Node) *Context {
	return &Context{name: name, origin: origin, entranceNode: entranceNode}
}

func (c *Context) Name() string         { return c.name }
func (c *Context) Origin() string       { return c.origin }
func (c *Context) EntranceNode() Node   { return c.entranceNode }
func (c *Context) CurEntry() *Entry     { return c.curEntry }
func (c *Context) setCurEntry(e *Entry) { c.curEntry = e }

// entranceNodeFactory is set by statnode at package init to avoid a
// base -> statnode import cycle: statnode implements Node, and only it
// knows how to build/look up the per-contextName EntranceNode and attach
// it under the process-wide root.
var entranceNodeFactory func(contextName string) Node

// SetEntranceNodeFactory is called once by statnode's init().
func SetEntranceNodeFactory(f func(contextName string) Node) {
	entranceNodeFactory = f
}

var contexts = xsync.NewMap[uint64, *Context]()

// ContextUtil manages the goroutine-local Context stack described in
// SPEC_FULL.md §4.3.
type ContextUtil struct{}

// Enter installs (or reuses) a Context for the calling goroutine. Nested
// calls with the same or a different contextName on the same goroutine
// reuse the existing Context (a goroutine has exactly one Context, per
// SPEC_FULL.md §3's "A Context has exactly one EntranceNode for its
// lifetime" invariant) until ContextUtil.Exit releases it; Entry.Exit does
// not release the Context.
func (ContextUtil) Enter(contextName, origin string) *Context {
	gid := goroutineID()
	if ctx, ok := contexts.Load(gid); ok {
		return ctx
	}
	var entranceNode Node
	if entranceNodeFactory != nil {
		entranceNode = entranceNodeFactory(contextName)
	}
	ctx := NewContext(contextName, origin, entranceNode)
	contexts.Store(gid, ctx)
	return ctx
}

// CurrentContext returns the calling goroutine's Context, if any.
func (ContextUtil) CurrentContext() (*Context, bool) {
	return contexts.Load(goroutineID())
}

// Exit releases the calling goroutine's Context. Per SPEC_FULL.md §4.3,
// callers should only invoke this once the outermost Entry has exited;
// Exit is idempotent and safe to call defensively.
func (ContextUtil) Exit() {
	contexts.Delete(goroutineID())
}
