package statnode

import (
	"github.com/flowgate-io/flowcore/base"
)

// Order constants fix each slot's position within its own category
// (StatPrepareSlot / StatSlot); see base.SlotChain for why slots of
// different categories don't need a single merged ordering.
const (
	OrderNodeSelector   uint32 = 10
	OrderClusterBuilder uint32 = 20
	OrderLogSlot        uint32 = 10
	OrderStatisticSlot  uint32 = 20
)

// NodeSelectorSlot resolves/creates the DefaultNode for (Context,
// resource), per SPEC_FULL.md §4.3.
type NodeSelectorSlot struct {
	Registry *Registry
}

func (s *NodeSelectorSlot) Order() uint32 { return OrderNodeSelector }

func (s *NodeSelectorSlot) Prepare(ctx *base.EntryContext) {
	e := ctx.Entry()
	goCtx := e.Context()

	var parent base.Node
	if e.Parent() != nil && e.Parent().CurNode() != nil {
		parent = e.Parent().CurNode()
	} else {
		parent = goCtx.EntranceNode()
	}

	dn := s.Registry.defaultNodeFor(goCtx.Name(), e.Resource(), parent)
	e.SetCurNode(dn)
}

// ClusterBuilderSlot ensures a ClusterNode exists for the resource (and
// an origin StatisticNode within it, if origin is set and not "default"),
// and assigns them onto the Entry, per SPEC_FULL.md §4.3.
type ClusterBuilderSlot struct {
	Registry *Registry
}

func (s *ClusterBuilderSlot) Order() uint32 { return OrderClusterBuilder }

func (s *ClusterBuilderSlot) Prepare(ctx *base.EntryContext) {
	e := ctx.Entry()
	cn := s.Registry.ClusterNodeFor(e.Resource().Name)
	e.SetClusterNode(cn)

	if dn, ok := e.CurNode().(clusterBackRefSetter); ok {
		dn.setClusterNode(cn)
	}

	origin := e.Context().Origin()
	if origin != "" && origin != "default" {
		e.SetOriginNode(cn.OriginNode(origin))
	}
}

var (
	_ base.StatPrepareSlot = (*NodeSelectorSlot)(nil)
	_ base.StatPrepareSlot = (*ClusterBuilderSlot)(nil)
)
