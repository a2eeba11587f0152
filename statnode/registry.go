package statnode

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flowclock"
)

// Registry owns the process-wide node maps of SPEC_FULL.md §3: the
// resource→ClusterNode map, the per-contextName EntranceNode map (all
// rooted under a single process-wide root EntranceNode), and the
// NodeSelector's (contextName,resource)→DefaultNode cache. Tests build
// their own Registry (via NewRegistry) instead of sharing global state,
// per the "opaque handle" design note of SPEC_FULL.md §9.
type Registry struct {
	cfg           config.StatisticConfig
	clock         flowclock.Clock
	clusterNodes  *xsync.Map[string, *ClusterNode]
	entranceNodes *xsync.Map[string, *EntranceNode]
	selectorCache *xsync.Map[string, *DefaultNode]
	lastTouchMs   *xsync.Map[string, int64]
	root          *EntranceNode
}

func NewRegistry(cfg config.StatisticConfig, clock flowclock.Clock) *Registry {
	if clock == nil {
		clock = flowclock.System
	}
	r := &Registry{
		cfg:           cfg,
		clock:         clock,
		clusterNodes:  xsync.NewMap[string, *ClusterNode](),
		entranceNodes: xsync.NewMap[string, *EntranceNode](),
		selectorCache: xsync.NewMap[string, *DefaultNode](),
		lastTouchMs:   xsync.NewMap[string, int64](),
	}
	r.root = newEntranceNode("", cfg, clock)
	return r
}

// Root returns the process-wide root EntranceNode.
func (r *Registry) Root() *EntranceNode { return r.root }

// EntranceNodeFor returns (lazily creating, and attaching under root) the
// EntranceNode for contextName.
func (r *Registry) EntranceNodeFor(contextName string) *EntranceNode {
	if en, ok := r.entranceNodes.Load(contextName); ok {
		return en
	}
	en := newEntranceNode(contextName, r.cfg, r.clock)
	actual, loaded := r.entranceNodes.LoadOrStore(contextName, en)
	if !loaded {
		r.root.addChild(actual.DefaultNode)
	}
	return actual
}

// ClusterNodeFor returns (lazily creating) the ClusterNode for resourceName,
// touching its last-accessed timestamp so GC leaves actively-resolved
// resources alone.
func (r *Registry) ClusterNodeFor(resourceName string) *ClusterNode {
	r.lastTouchMs.Store(resourceName, r.clock.NowMillis())
	if cn, ok := r.clusterNodes.Load(resourceName); ok {
		return cn
	}
	cn, _ := r.clusterNodes.LoadOrStore(resourceName, newClusterNode(resourceName, r.cfg, r.clock))
	return cn
}

// GC removes ClusterNode entries that have carried no traffic (TotalQps and
// CurThreadNum both zero) and have not been resolved via ClusterNodeFor in
// at least staleMs milliseconds (SPEC_FULL.md §4.13's stale-node sweep).
// Entries still in flight or recently touched are left alone regardless of
// staleMs, since a zero in-flight count can momentarily coincide with a
// request that resolved the node a moment ago but hasn't yet entered.
func (r *Registry) GC(staleMs int64) int {
	now := r.clock.NowMillis()
	removed := 0
	r.clusterNodes.Range(func(resource string, cn *ClusterNode) bool {
		touched, ok := r.lastTouchMs.Load(resource)
		if ok && now-touched < staleMs {
			return true
		}
		if cn.TotalQps() != 0 || cn.CurThreadNum() != 0 {
			return true
		}
		r.clusterNodes.Delete(resource)
		r.lastTouchMs.Delete(resource)
		removed++
		return true
	})
	return removed
}

// ClusterNodeIfExists looks up resourceName's ClusterNode without creating
// one, used by rule checkers that need to resolve a referenced resource's
// ClusterNode (strategy=relate in FlowRuleChecker).
func (r *Registry) ClusterNodeIfExists(resourceName string) (*ClusterNode, bool) {
	return r.clusterNodes.Load(resourceName)
}

func selectorKey(contextName, resourceName string) string {
	return contextName + "\x00" + resourceName
}

// defaultNodeFor implements the NodeSelectorSlot cache described in
// SPEC_FULL.md §4.3: one DefaultNode per (contextName, resourceName),
// parented under whichever node (DefaultNode or EntranceNode) was current
// the first time this pair was assembled.
func (r *Registry) defaultNodeFor(contextName string, resource *base.ResourceWrapper, parent base.Node) *DefaultNode {
	key := selectorKey(contextName, resource.Name)
	if dn, ok := r.selectorCache.Load(key); ok {
		return dn
	}
	dn := newDefaultNode(resource, r.cfg, r.clock)
	actual, loaded := r.selectorCache.LoadOrStore(key, dn)
	if !loaded {
		if attacher, ok := parent.(childAttacher); ok {
			attacher.addChild(actual)
		}
	}
	return actual
}

// reset clears every node map; used by administrative resets in tests.
func (r *Registry) reset() {
	r.clusterNodes = xsync.NewMap[string, *ClusterNode]()
	r.entranceNodes = xsync.NewMap[string, *EntranceNode]()
	r.selectorCache = xsync.NewMap[string, *DefaultNode]()
	r.lastTouchMs = xsync.NewMap[string, int64]()
	r.root = newEntranceNode("", r.cfg, r.clock)
}

// Default is the process-wide Registry the root API wires its SlotChain
// to. Bootstrap(cfg) replaces it; tests typically build their own
// Registry and a private SlotChain instead of touching this.
var Default = NewRegistry(config.Default().Statistic, flowclock.System)

func init() {
	base.SetEntranceNodeFactory(func(contextName string) base.Node {
		return Default.EntranceNodeFor(contextName)
	})
}

// Bootstrap replaces Default with a Registry built from cfg — called once
// at application startup if the caller wants non-default sample counts.
func Bootstrap(cfg config.StatisticConfig, clock flowclock.Clock) {
	Default = NewRegistry(cfg, clock)
	base.SetEntranceNodeFactory(func(contextName string) base.Node {
		return Default.EntranceNodeFor(contextName)
	})
}
