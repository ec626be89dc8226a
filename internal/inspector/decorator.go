package inspector

import "github.com/javagraph/javagraph/internal/graph"

// Decorator is the per-invocation handle an inspector uses to mutate its
// node. It is the only legal way to write to a node; direct mutation of the
// wrapped node's fields from outside the graph package is unsupported.
// Decorator serializes its writes against the node's own lock via the
// owning Repository, and routes property writes through the merge rule.
type Decorator struct {
	repo *graph.Repository
	node *graph.Node
}

// NewDecorator builds a Decorator bound to node, backed by repo for the
// merge/locking/index machinery. Constructed fresh by the scheduler for
// every (inspector, node) invocation.
func NewDecorator(repo *graph.Repository, node *graph.Node) *Decorator {
	return &Decorator{repo: repo, node: node}
}

// SetProperty writes key=value on the wrapped node, subject to the
// repository's merge-priority rule.
func (d *Decorator) SetProperty(key string, value graph.PropertyValue) {
	d.repo.MergeProperty(d.node, key, value)
}

// EnableTag adds tag to the wrapped node's tag set. Tag sets are monotone.
func (d *Decorator) EnableTag(tag string) {
	d.repo.EnableTag(d.node, tag)
}

// Error appends message to the wrapped node's diagnostic log.
func (d *Decorator) Error(message string) {
	d.repo.RecordError(d.node, message)
}

// AddEdge creates (or finds the existing) edge of edgeType from the
// wrapped node to target, the one way an inspector connects two nodes.
// target must already exist in the repository; inspectors that need to
// link to a node by id should resolve it via Node()'s owning repository
// query methods (exposed indirectly through Repository.FindClassByFqn and
// friends) before calling AddEdge.
func (d *Decorator) AddEdge(target graph.NodeRef, edgeType string) error {
	source := graph.NodeRef{Type: d.node.Type, ID: d.node.ID}

	_, err := d.repo.GetOrCreateEdge(source, target, edgeType)

	return err
}

// NodeID returns the wrapped node's id.
func (d *Decorator) NodeID() string { return d.node.ID }

// NodeType returns the wrapped node's type.
func (d *Decorator) NodeType() graph.NodeType { return d.node.Type }

// Node exposes the wrapped node for read-only access (HasTag, Property,
// etc.) Inspectors should use this only to read, never to write fields
// directly.
func (d *Decorator) Node() *graph.Node { return d.node }

// FindClassByFqn looks up another JavaClassNode by fully-qualified name,
// the read-side counterpart to AddEdge: inspectors resolve a target before
// linking to it.
func (d *Decorator) FindClassByFqn(fqn string) (*graph.Node, bool) {
	return d.repo.FindClassByFqn(fqn)
}

// Outgoing and Incoming expose edge queries against the wrapped node,
// used by coupling metrics to count efferent/afferent relationships.
func (d *Decorator) Outgoing(edgeType string) []*graph.Edge {
	return d.repo.Outgoing(graph.NodeRef{Type: d.node.Type, ID: d.node.ID}, edgeType)
}

func (d *Decorator) Incoming(edgeType string) []*graph.Edge {
	return d.repo.Incoming(graph.NodeRef{Type: d.node.Type, ID: d.node.ID}, edgeType)
}

// OutgoingFrom queries outgoing edges for an arbitrary node ref, letting a
// metric that walks beyond the wrapped node (a transitive BFS) reuse the
// same read-only edge accessor.
func (d *Decorator) OutgoingFrom(ref graph.NodeRef, edgeType string) []*graph.Edge {
	return d.repo.Outgoing(ref, edgeType)
}

// IncomingFrom queries incoming edges for an arbitrary node ref, the
// reverse-direction counterpart to OutgoingFrom used by a transitive
// afferent-coupling BFS.
func (d *Decorator) IncomingFrom(ref graph.NodeRef, edgeType string) []*graph.Edge {
	return d.repo.Incoming(ref, edgeType)
}

// AllJavaClasses returns every JavaClassNode currently in the repository,
// used by transitive-reachability coupling metrics that must walk the
// whole class graph rather than a single node's neighborhood.
func (d *Decorator) AllJavaClasses() []*graph.Node {
	return d.repo.AllNodes(graph.NodeTypeJavaClass)
}
