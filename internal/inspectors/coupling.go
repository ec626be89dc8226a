package inspectors

import (
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/inspector"
)

// CouplingName is the registered name of the coupling metrics inspector.
const CouplingName = "inspectors.coupling"

// Coupling computes direct efferent/afferent coupling and instability for
// every JavaClassNode whose import/inheritance edges have already been
// built. Transitive efferent and afferent coupling (used only as
// diagnostics, not part of instability) are each computed by a bounded BFS
// over imports/extends/implements edges with an explicit visited set,
// since the class graph may contain cycles (§9's design note on cyclic
// dependency handling).
type Coupling struct{}

// NewCoupling builds the coupling inspector.
func NewCoupling() *Coupling { return &Coupling{} }

func (c *Coupling) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{
		Name:     CouplingName,
		Requires: []string{tagEdgesBuilt},
		Produces: []string{tagCouplingComputed},
		Variant:  inspector.VariantJavaClass,
	}
}

const tagCouplingComputed = "couplingComputed"

func (c *Coupling) Supports(node *graph.Node) bool {
	return node.HasTag(tagEdgesBuilt)
}

func (c *Coupling) Inspect(node *graph.Node, dec *inspector.Decorator) error {
	efferent := len(dec.Outgoing(graph.EdgeImports)) +
		len(dec.Outgoing(graph.EdgeExtends)) +
		len(dec.Outgoing(graph.EdgeImplements))

	afferent := len(dec.Incoming(graph.EdgeImports)) +
		len(dec.Incoming(graph.EdgeExtends)) +
		len(dec.Incoming(graph.EdgeImplements))

	dec.SetProperty(graph.PropEfferent, efferent)
	dec.SetProperty(graph.PropAfferent, afferent)
	dec.SetProperty(graph.PropDirectEfferent, efferent)
	dec.SetProperty(graph.PropDirectAfferent, afferent)

	total := efferent + afferent
	if total == 0 {
		dec.SetProperty(graph.PropInstability, 0.0)
	} else {
		dec.SetProperty(graph.PropInstability, float64(efferent)/float64(total))
	}

	dec.SetProperty(graph.PropTransitiveEfferent, transitiveReach(dec, dec.OutgoingFrom))
	dec.SetProperty(graph.PropTransitiveAfferent, transitiveReach(dec, reverseOf(dec)))

	dec.EnableTag(tagCouplingComputed)

	return nil
}

// edgeWalker queries one node ref's neighbors of edgeType in a single
// direction, letting transitiveReach walk forward (efferent) or backward
// (afferent) edges with the same BFS.
type edgeWalker func(ref graph.NodeRef, edgeType string) []*graph.Edge

// reverseOf adapts dec.IncomingFrom into an edgeWalker that yields the
// *source* of each incoming edge, so transitiveReach can walk it the same
// way it walks an outgoing edge's target.
func reverseOf(dec *inspector.Decorator) edgeWalker {
	return func(ref graph.NodeRef, edgeType string) []*graph.Edge {
		incoming := dec.IncomingFrom(ref, edgeType)

		reversed := make([]*graph.Edge, len(incoming))
		for i, edge := range incoming {
			reversed[i] = &graph.Edge{ID: edge.ID, Source: edge.Target, Target: edge.Source, Type: edge.Type}
		}

		return reversed
	}
}

// transitiveReach counts the distinct classes reachable from node via any
// number of imports/extends/implements edges walked with walk, guarding
// against cycles with an explicit visited set rather than relying on
// recursion depth.
func transitiveReach(dec *inspector.Decorator, walk edgeWalker) int {
	self := graph.NodeRef{Type: dec.NodeType(), ID: dec.NodeID()}

	visited := map[graph.NodeRef]bool{self: true}
	queue := []graph.NodeRef{self}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edgeType := range []string{graph.EdgeImports, graph.EdgeExtends, graph.EdgeImplements} {
			for _, edge := range walk(current, edgeType) {
				if !visited[edge.Target] {
					visited[edge.Target] = true
					queue = append(queue, edge.Target)
				}
			}
		}
	}

	return len(visited) - 1
}
