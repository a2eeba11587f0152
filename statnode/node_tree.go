package statnode

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flowclock"
)

// ClusterNode is the global aggregate per resource name, plus a
// lazily-created StatisticNode per distinct origin (SPEC_FULL.md §3).
type ClusterNode struct {
	*StatisticNode
	resourceName string
	origins      *xsync.Map[string, *StatisticNode]
	cfg          config.StatisticConfig
	clock        flowclock.Clock
}

func newClusterNode(resourceName string, cfg config.StatisticConfig, clock flowclock.Clock) *ClusterNode {
	return &ClusterNode{
		StatisticNode: NewStatisticNode(cfg, clock),
		resourceName:  resourceName,
		origins:       xsync.NewMap[string, *StatisticNode](),
		cfg:           cfg,
		clock:         clock,
	}
}

// OriginNode returns (lazily creating) the StatisticNode for origin.
func (cn *ClusterNode) OriginNode(origin string) *StatisticNode {
	if n, ok := cn.origins.Load(origin); ok {
		return n
	}
	n, _ := cn.origins.LoadOrStore(origin, NewStatisticNode(cn.cfg, cn.clock))
	return n
}

// DefaultNode is per (Context, resource): it has one ClusterNode
// back-reference and a set of child DefaultNodes keyed by resource name,
// forming the invocation tree under the owning Context's EntranceNode.
type DefaultNode struct {
	*StatisticNode
	resource    *base.ResourceWrapper
	clusterNode base.Node
	children    *xsync.Map[string, *DefaultNode]
}

func newDefaultNode(resource *base.ResourceWrapper, cfg config.StatisticConfig, clock flowclock.Clock) *DefaultNode {
	return &DefaultNode{
		StatisticNode: NewStatisticNode(cfg, clock),
		resource:      resource,
		children:      xsync.NewMap[string, *DefaultNode](),
	}
}

func (dn *DefaultNode) Resource() *base.ResourceWrapper { return dn.resource }
func (dn *DefaultNode) ClusterNode() base.Node          { return dn.clusterNode }
func (dn *DefaultNode) setClusterNode(n base.Node)      { dn.clusterNode = n }

func (dn *DefaultNode) addChild(child *DefaultNode) {
	dn.children.LoadOrStore(child.resource.Name, child)
}

// Children returns a snapshot of this node's immediate children.
func (dn *DefaultNode) Children() []*DefaultNode {
	out := make([]*DefaultNode, 0, dn.children.Size())
	dn.children.Range(func(_ string, v *DefaultNode) bool {
		out = append(out, v)
		return true
	})
	return out
}

// childAttacher lets NodeSelectorSlot attach a freshly-created DefaultNode
// under whichever node (DefaultNode or EntranceNode) was current, without
// needing to know which concrete kind it is.
type childAttacher interface {
	addChild(*DefaultNode)
}

// clusterBackRefSetter lets ClusterBuilderSlot assign a DefaultNode's
// ClusterNode back-reference without a public setter.
type clusterBackRefSetter interface {
	setClusterNode(base.Node)
}

// EntranceNode is a DefaultNode with aggregating read semantics: every
// metric-reading method sums over its immediate children instead of its
// own (always-zero) counters, per SPEC_FULL.md §3.
type EntranceNode struct {
	*DefaultNode
}

func newEntranceNode(name string, cfg config.StatisticConfig, clock flowclock.Clock) *EntranceNode {
	return &EntranceNode{DefaultNode: newDefaultNode(base.GetResource(name, base.EntryTypeIn), cfg, clock)}
}

func (en *EntranceNode) PassQps() float64 {
	var total float64
	for _, c := range en.Children() {
		total += c.PassQps()
	}
	return total
}

func (en *EntranceNode) PreviousPassQps() float64 {
	var total float64
	for _, c := range en.Children() {
		total += c.PreviousPassQps()
	}
	return total
}

func (en *EntranceNode) BlockQps() float64 {
	var total float64
	for _, c := range en.Children() {
		total += c.BlockQps()
	}
	return total
}

func (en *EntranceNode) TotalQps() float64 {
	var total float64
	for _, c := range en.Children() {
		total += c.TotalQps()
	}
	return total
}

func (en *EntranceNode) SuccessQps() float64 {
	var total float64
	for _, c := range en.Children() {
		total += c.SuccessQps()
	}
	return total
}

func (en *EntranceNode) ExceptionQps() float64 {
	var total float64
	for _, c := range en.Children() {
		total += c.ExceptionQps()
	}
	return total
}

func (en *EntranceNode) OccupiedPassQps() float64 {
	var total float64
	for _, c := range en.Children() {
		total += c.OccupiedPassQps()
	}
	return total
}

func (en *EntranceNode) CurThreadNum() int64 {
	var total int64
	for _, c := range en.Children() {
		total += c.CurThreadNum()
	}
	return total
}

// AvgRt is the passQps-weighted average over children, per SPEC_FULL.md
// §4.2: avgRt = Σ child.avgRt·child.passQps / max(1, Σ child.passQps).
func (en *EntranceNode) AvgRt() float64 {
	var weighted, passSum float64
	for _, c := range en.Children() {
		p := c.PassQps()
		weighted += c.AvgRt() * p
		passSum += p
	}
	if passSum < 1 {
		passSum = 1
	}
	return weighted / passSum
}

func (en *EntranceNode) MinRt() float64 {
	var min float64 = -1
	for _, c := range en.Children() {
		r := c.MinRt()
		if min < 0 || r < min {
			min = r
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

var (
	_ base.Node = (*ClusterNode)(nil)
	_ base.Node = (*DefaultNode)(nil)
	_ base.Node = (*EntranceNode)(nil)
)
