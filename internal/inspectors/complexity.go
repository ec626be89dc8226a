package inspectors

import (
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/inspector"
)

// WeightedMethodsName is the registered name of the WMC inspector.
const WeightedMethodsName = "inspectors.weightedMethods"

// WeightedMethods publishes weightedMethodsPerClass, the sum of per-method
// cyclomatic complexity across a class (the classic Chidamber & Kemerer
// WMC metric). The source/binary collectors already accumulate this exact
// sum into cyclomaticComplexity while walking members, so this inspector's
// job is to expose it under its own metric name once collection has
// finished, rather than to recompute it.
type WeightedMethods struct{}

// NewWeightedMethods builds the WMC inspector.
func NewWeightedMethods() *WeightedMethods { return &WeightedMethods{} }

func (w *WeightedMethods) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{
		Name:     WeightedMethodsName,
		Requires: []string{tagCollected},
		Produces: []string{tagWeightedMethods},
		Variant:  inspector.VariantJavaClass,
	}
}

const tagWeightedMethods = "weightedMethodsComputed"

func (w *WeightedMethods) Supports(node *graph.Node) bool {
	return node.HasTag(tagCollected)
}

func (w *WeightedMethods) Inspect(node *graph.Node, dec *inspector.Decorator) error {
	complexity, _ := node.Property(graph.PropCyclomatic)

	wmc := 0
	if v, ok := complexity.(int); ok {
		wmc = v
	}

	dec.SetProperty(graph.PropWMC, wmc)
	dec.EnableTag(tagWeightedMethods)

	return nil
}
