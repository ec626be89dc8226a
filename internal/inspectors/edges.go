// Package inspectors holds the engine's own built-in Phase 4 (JavaClassNode
// analysis) inspectors: the import/inheritance edge builder and the
// coupling/complexity metrics that read those edges back. These are the
// core's own domain logic, not a wrapper around a retrieved library — the
// formulas come directly from the data model's property definitions.
package inspectors

import (
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/inspector"
)

const (
	tagCollected   = "collected"
	tagEdgesBuilt  = "edgesBuilt"
)

// EdgeBuilderName is the registered name of the edge-building inspector.
const EdgeBuilderName = "inspectors.edgeBuilder"

// EdgeBuilder turns a JavaClassNode's collector-populated imports/
// superName/interfaceNames properties into graph edges once the class
// graph is populated enough to resolve them. It requires "collected" (set
// by either collector) and produces "edgesBuilt", so it always runs after
// Phase 2 and naturally reaches a fixed point once every resolvable target
// has a class node: a class whose superclass node is discovered on a later
// pass gets its "extends" edge on that later pass, which is exactly the
// freshness-driven re-visit behavior §4.F describes.
type EdgeBuilder struct{}

// NewEdgeBuilder builds the edge-building inspector.
func NewEdgeBuilder() *EdgeBuilder { return &EdgeBuilder{} }

func (b *EdgeBuilder) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{
		Name:     EdgeBuilderName,
		Requires: []string{tagCollected},
		Produces: []string{tagEdgesBuilt},
		Variant:  inspector.VariantJavaClass,
	}
}

func (b *EdgeBuilder) Supports(node *graph.Node) bool {
	return node.HasTag(tagCollected)
}

func (b *EdgeBuilder) Inspect(node *graph.Node, dec *inspector.Decorator) error {
	pkgVal, _ := node.Property(graph.PropPackageName)
	pkg, _ := pkgVal.(string)

	imports, _ := node.Property("imports")
	for _, candidate := range resolveImportTargets(imports) {
		if target, ok := dec.FindClassByFqn(candidate); ok {
			ref := graph.NodeRef{Type: target.Type, ID: target.ID}
			if err := dec.AddEdge(ref, graph.EdgeImports); err != nil {
				return err
			}
		}
	}

	superVal, _ := node.Property("superName")
	if superName, _ := superVal.(string); isResolvableName(superName) {
		if target, ok := resolveSimpleName(dec, superName, pkg, imports); ok {
			ref := graph.NodeRef{Type: target.Type, ID: target.ID}
			if err := dec.AddEdge(ref, graph.EdgeExtends); err != nil {
				return err
			}
		}
	}

	ifaceVal, _ := node.Property("interfaceNames")
	for _, name := range stringSlice(ifaceVal) {
		if target, ok := resolveSimpleName(dec, name, pkg, imports); ok {
			ref := graph.NodeRef{Type: target.Type, ID: target.ID}
			if err := dec.AddEdge(ref, graph.EdgeImplements); err != nil {
				return err
			}
		}
	}

	dec.EnableTag(tagEdgesBuilt)

	return nil
}

// resolveImportTargets extracts fully-qualified import targets from the
// imports property, skipping wildcard imports (java.util.*) which do not
// name a single class.
func resolveImportTargets(importsVal graph.PropertyValue) []string {
	var out []string

	for _, imp := range stringSlice(importsVal) {
		if imp == "" {
			continue
		}

		if lastSegmentIsWildcard(imp) {
			continue
		}

		out = append(out, imp)
	}

	return out
}

func lastSegmentIsWildcard(name string) bool {
	return len(name) > 0 && name[len(name)-1] == '*'
}

// isResolvableName reports whether a superName/interfaceName value is a
// concrete type name rather than one of the sentinel placeholders emitted
// when a source/binary parser found no such relationship.
func isResolvableName(name string) bool {
	switch name {
	case "", graph.ValueNotApplicable, graph.ValueUnknown:
		return false
	default:
		return true
	}
}

// resolveSimpleName resolves a bare type name (as produced by the source
// collector for superclass/interface references) to a JavaClassNode by
// trying, in order: the name as already fully-qualified (the binary
// collector's case), the current package, and each single-type import
// whose last segment matches.
func resolveSimpleName(dec *inspector.Decorator, name, pkg string, importsVal graph.PropertyValue) (*graph.Node, bool) {
	if target, ok := dec.FindClassByFqn(name); ok {
		return target, true
	}

	if pkg != "" && pkg != graph.ValueUnknown {
		if target, ok := dec.FindClassByFqn(pkg + "." + name); ok {
			return target, true
		}
	}

	for _, imp := range stringSlice(importsVal) {
		if lastSegmentIsWildcard(imp) {
			continue
		}

		if simpleNameOf(imp) == name {
			if target, ok := dec.FindClassByFqn(imp); ok {
				return target, true
			}
		}
	}

	return nil, false
}

func simpleNameOf(fqn string) string {
	for i := len(fqn) - 1; i >= 0; i-- {
		if fqn[i] == '.' {
			return fqn[i+1:]
		}
	}

	return fqn
}

func stringSlice(v graph.PropertyValue) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case nil:
		return nil
	default:
		return nil
	}
}
