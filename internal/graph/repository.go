package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javagraph/javagraph/internal/engerr"
)

// Repository is the sole owner of all nodes and edges created during an
// analysis run. It is safe for concurrent use: node content is guarded by
// each node's own lock, while the repository's indices (by id, tag,
// property, fqn) are guarded by a single RWMutex. This is an exact
// per-node locking scheme, which the design permits in place of a coarser
// striped scheme.
type Repository struct {
	mu sync.RWMutex

	nodes map[NodeRef]*Node

	// byTag maps tag name to the set of node refs currently carrying it.
	byTag map[string]map[NodeRef]struct{}

	// byProperty maps property key to the set of node refs that have that
	// key set, regardless of value. Exact-value lookups filter this set.
	byProperty map[string]map[NodeRef]struct{}

	// classByFqn maps a JavaClassNode's fully-qualified name (its id) to
	// its node ref, for findClassByFqn.
	classByFqn map[string]NodeRef

	edges    map[string]*Edge
	edgeList []*Edge

	// outgoing/incoming index edges by endpoint for relationship queries.
	outgoing map[NodeRef][]*Edge
	incoming map[NodeRef][]*Edge
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		nodes:      make(map[NodeRef]*Node),
		byTag:      make(map[string]map[NodeRef]struct{}),
		byProperty: make(map[string]map[NodeRef]struct{}),
		classByFqn: make(map[string]NodeRef),
		edges:      make(map[string]*Edge),
		outgoing:   make(map[NodeRef][]*Edge),
		incoming:   make(map[NodeRef][]*Edge),
	}
}

// GetOrCreateNode returns the existing node for (nodeType, id) if present,
// preserving its identity and content; otherwise it installs and returns a
// freshly created node. It never replaces an existing node's content.
func (r *Repository) GetOrCreateNode(nodeType NodeType, id string) (*Node, error) {
	if id == "" {
		return nil, engerr.NewInvariantViolation("empty node id", nil)
	}

	ref := NodeRef{Type: nodeType, ID: id}

	r.mu.RLock()
	if existing, ok := r.nodes[ref]; ok {
		r.mu.RUnlock()
		return existing, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.nodes[ref]; ok {
		return existing, nil
	}

	node := NewNode(nodeType, id)
	node.LastModified = now()
	r.nodes[ref] = node

	if nodeType == NodeTypeJavaClass {
		r.classByFqn[id] = ref
	}

	return node, nil
}

// now is a seam so tests can observe monotonic ordering without depending
// on wall-clock resolution; production code always uses time.Now.
var now = time.Now

// GetOrCreateEdge de-duplicates edges on (source, target, type), assigning
// a fresh id only when an edge of that shape does not already exist. Both
// endpoints must already be present in the repository.
func (r *Repository) GetOrCreateEdge(source, target NodeRef, edgeType string) (*Edge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[source]; !ok {
		return nil, engerr.NewInvariantViolation(fmt.Sprintf("edge source %v not in repository", source), nil)
	}

	if _, ok := r.nodes[target]; !ok {
		return nil, engerr.NewInvariantViolation(fmt.Sprintf("edge target %v not in repository", target), nil)
	}

	key := edgeKey(source, target, edgeType)
	if existing, ok := r.edges[key]; ok {
		return existing, nil
	}

	edge := &Edge{
		ID:         uuid.NewString(),
		Source:     source,
		Target:     target,
		Type:       edgeType,
		Properties: make(map[string]PropertyValue),
	}

	r.edges[key] = edge
	r.edgeList = append(r.edgeList, edge)
	r.outgoing[source] = append(r.outgoing[source], edge)
	r.incoming[target] = append(r.incoming[target], edge)

	return edge, nil
}

// FindByID is a pure lookup by node type and id.
func (r *Repository) FindByID(nodeType NodeType, id string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[NodeRef{Type: nodeType, ID: id}]

	return n, ok
}

// FindByTag returns all nodes currently carrying tag.
func (r *Repository) FindByTag(tag string) []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := r.byTag[tag]
	out := make([]*Node, 0, len(refs))

	for ref := range refs {
		out = append(out, r.nodes[ref])
	}

	sortNodes(out)

	return out
}

// FindByProperty returns nodes carrying key. If value is non-nil, only
// nodes whose current value for key equals value (via a direct comparison)
// are returned; callers wanting wildcard matching should pass a nil value
// and filter the result themselves.
func (r *Repository) FindByProperty(key string, value PropertyValue) []*Node {
	r.mu.RLock()
	refs := r.byProperty[key]
	candidates := make([]*Node, 0, len(refs))

	for ref := range refs {
		candidates = append(candidates, r.nodes[ref])
	}
	r.mu.RUnlock()

	if value == nil {
		sortNodes(candidates)
		return candidates
	}

	out := make([]*Node, 0, len(candidates))

	for _, n := range candidates {
		if v, ok := n.Property(key); ok && v == value {
			out = append(out, n)
		}
	}

	sortNodes(out)

	return out
}

// FindClassByFqn looks up a JavaClassNode by its fully-qualified name.
func (r *Repository) FindClassByFqn(fqn string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.classByFqn[fqn]
	if !ok {
		return nil, false
	}

	return r.nodes[ref], true
}

// Outgoing returns edges leaving node, optionally filtered by edgeType
// (empty string means no filter).
func (r *Repository) Outgoing(ref NodeRef, edgeType string) []*Edge {
	return filterEdges(r.edgesLocked(r.outgoing, ref), edgeType)
}

// Incoming returns edges arriving at node, optionally filtered by edgeType.
func (r *Repository) Incoming(ref NodeRef, edgeType string) []*Edge {
	return filterEdges(r.edgesLocked(r.incoming, ref), edgeType)
}

func (r *Repository) edgesLocked(index map[NodeRef][]*Edge, ref NodeRef) []*Edge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := index[ref]
	out := make([]*Edge, len(src))
	copy(out, src)

	return out
}

func filterEdges(edges []*Edge, edgeType string) []*Edge {
	if edgeType == "" {
		return edges
	}

	out := make([]*Edge, 0, len(edges))

	for _, e := range edges {
		if e.Type == edgeType {
			out = append(out, e)
		}
	}

	return out
}

// AllNodes returns every node of the given type, in deterministic id order.
func (r *Repository) AllNodes(nodeType NodeType) []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Node, 0)

	for ref, n := range r.nodes {
		if ref.Type == nodeType {
			out = append(out, n)
		}
	}

	sortNodes(out)

	return out
}

// AllEdges returns every edge in insertion order.
func (r *Repository) AllEdges() []*Edge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Edge, len(r.edgeList))
	copy(out, r.edgeList)

	return out
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type < nodes[j].Type
		}

		return nodes[i].ID < nodes[j].ID
	})
}

// MergeProperty applies the merge-priority rule (classify.go) for a single
// property write on node, updating the repository's property index and the
// node's lastModified timestamp when the write actually changes the node's
// fingerprint. It is the single choke point through which every decorator
// write passes (§4.C, §5).
func (r *Repository) MergeProperty(node *Node, key string, newValue PropertyValue) {
	node.mu.Lock()

	before := fingerprintLocked(node)
	cur, ok := node.Properties[key]
	merged := mergeValue(cur, ok, newValue)
	node.Properties[key] = merged
	after := fingerprintLocked(node)
	changed := before != after

	if changed {
		node.LastModified = now()
	}

	node.mu.Unlock()

	if !ok || changed {
		r.indexProperty(node, key)
	}
}

// EnableTag adds tag to node's tag set (monotone, set-union semantics) and
// updates the repository's tag index.
func (r *Repository) EnableTag(node *Node, tag string) {
	node.mu.Lock()

	_, already := node.Tags[tag]
	if !already {
		node.Tags[tag] = struct{}{}
		node.LastModified = now()
	}

	node.mu.Unlock()

	if !already {
		r.indexTag(node, tag)
	}
}

// RecordError appends message to node's diagnostic log. Recording an error
// does not change the node's fingerprint (diagnostics are not part of
// convergence detection).
func (r *Repository) RecordError(node *Node, message string) {
	node.mu.Lock()
	defer node.mu.Unlock()

	node.Diagnostics = append(node.Diagnostics, message)
}

// MarkExecuted records that inspector finished running on node at the
// given timestamp. Called only by the scheduler.
func (r *Repository) MarkExecuted(node *Node, inspector string, at time.Time) {
	node.mu.Lock()
	defer node.mu.Unlock()

	node.Executed[inspector] = at
}

func (r *Repository) indexTag(node *Node, tag string) {
	ref := NodeRef{Type: node.Type, ID: node.ID}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byTag[tag]
	if !ok {
		set = make(map[NodeRef]struct{})
		r.byTag[tag] = set
	}

	set[ref] = struct{}{}
}

func (r *Repository) indexProperty(node *Node, key string) {
	ref := NodeRef{Type: node.Type, ID: node.ID}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byProperty[key]
	if !ok {
		set = make(map[NodeRef]struct{})
		r.byProperty[key] = set
	}

	set[ref] = struct{}{}
}

// Subgraph is a filtered, read-only view returned by BuildSubgraph.
type Subgraph struct {
	Nodes []*Node
	Edges []*Edge
}

// BuildSubgraph returns a filtered view of the repository restricted to the
// given node types and edge types. Empty slices mean "no filter" (include
// all). The returned view is a snapshot, not a live reference.
func (r *Repository) BuildSubgraph(nodeTypes []NodeType, edgeTypes []string) Subgraph {
	nodeSet := make(map[NodeType]bool, len(nodeTypes))
	for _, t := range nodeTypes {
		nodeSet[t] = true
	}

	edgeSet := make(map[string]bool, len(edgeTypes))
	for _, t := range edgeTypes {
		edgeSet[t] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out Subgraph

	for ref, n := range r.nodes {
		if len(nodeSet) == 0 || nodeSet[ref.Type] {
			out.Nodes = append(out.Nodes, n)
		}
	}

	sortNodes(out.Nodes)

	for _, e := range r.edgeList {
		if len(edgeSet) == 0 || edgeSet[e.Type] {
			out.Edges = append(out.Edges, e)
		}
	}

	return out
}
