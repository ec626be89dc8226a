// Package inspector defines the pluggable analysis unit contract: the
// Inspector/Collector interfaces, their declarative tag dependencies, the
// Descriptor metadata the scheduler reads, the Registry that rejects
// duplicate names, and the Decorator through which every node mutation
// flows.
package inspector

import (
	"github.com/javagraph/javagraph/internal/engerr"
	"github.com/javagraph/javagraph/internal/graph"
)

// Variant names which node type an inspector or collector is parameterized
// over.
type Variant string

const (
	VariantProjectFile Variant = "project_file"
	VariantJavaClass   Variant = "java_class"
)

// Descriptor is the static metadata every inspector exposes, used by the
// dependency resolver to build the topological schedule and by the
// scheduler to decide applicability and freshness.
type Descriptor struct {
	// Name is unique across the registry; used in execution-timestamp maps
	// and diagnostic logs.
	Name string

	// Requires lists tags that must already be present on a node before
	// this inspector is scheduled against it.
	Requires []string

	// Produces lists tags this inspector may set. Inspectors that only
	// write properties declare an empty Produces.
	Produces []string

	// Variant names the node type this inspector consumes.
	Variant Variant
}

// Inspector is a unit of analysis that enriches one node variant with
// tags, properties, or edges, writing exclusively through the Decorator
// passed to Inspect. Implementations must be safe to call concurrently on
// distinct nodes.
type Inspector interface {
	Descriptor() Descriptor
	Supports(node *graph.Node) bool
	Inspect(node *graph.Node, dec *Decorator) error
}

// Collector is the distinguished Phase-2 kind of inspector that creates new
// nodes (JavaClassNode instances) from ProjectFiles rather than enriching
// an existing node. Collectors run once, before the multi-pass loops, and
// are not subject to the freshness/fixed-point machinery.
type Collector interface {
	Descriptor() Descriptor
	Supports(node *graph.Node) bool
	Collect(projectFile *graph.Node, repo *graph.Repository) error
}

// Registry holds the inspectors/collectors registered for one analysis run,
// rejecting duplicate names at registration time.
type Registry struct {
	inspectors map[string]Inspector
	collectors map[string]Collector
	order      []string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		inspectors: make(map[string]Inspector),
		collectors: make(map[string]Collector),
	}
}

// RegisterInspector adds insp to the registry. Returns an
// engerr.InvariantViolation if an inspector or collector with the same name
// is already registered.
func (r *Registry) RegisterInspector(insp Inspector) error {
	name := insp.Descriptor().Name

	if err := r.checkNameFree(name); err != nil {
		return err
	}

	r.inspectors[name] = insp
	r.order = append(r.order, name)

	return nil
}

// RegisterCollector adds coll to the registry under the same name-rejection
// rule as RegisterInspector.
func (r *Registry) RegisterCollector(coll Collector) error {
	name := coll.Descriptor().Name

	if err := r.checkNameFree(name); err != nil {
		return err
	}

	r.collectors[name] = coll
	r.order = append(r.order, name)

	return nil
}

func (r *Registry) checkNameFree(name string) error {
	if name == "" {
		return engerr.NewInvariantViolation("inspector name must not be empty", nil)
	}

	if _, ok := r.inspectors[name]; ok {
		return engerr.NewInvariantViolation("duplicate inspector name: "+name, nil)
	}

	if _, ok := r.collectors[name]; ok {
		return engerr.NewInvariantViolation("duplicate inspector name: "+name, nil)
	}

	return nil
}

// InspectorsFor returns the registered inspectors for a given variant, in
// registration order (the dependency resolver re-sorts them topologically;
// this order only matters as the resolver's tie-break input before sorting
// by name).
func (r *Registry) InspectorsFor(variant Variant) []Inspector {
	out := make([]Inspector, 0, len(r.inspectors))

	for _, name := range r.order {
		insp, ok := r.inspectors[name]
		if ok && insp.Descriptor().Variant == variant {
			out = append(out, insp)
		}
	}

	return out
}

// CollectorsFor returns the registered collectors for a given variant, in
// registration order.
func (r *Registry) CollectorsFor(variant Variant) []Collector {
	out := make([]Collector, 0, len(r.collectors))

	for _, name := range r.order {
		coll, ok := r.collectors[name]
		if ok && coll.Descriptor().Variant == variant {
			out = append(out, coll)
		}
	}

	return out
}
