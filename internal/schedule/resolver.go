package schedule

import (
	"fmt"
	"sort"

	"github.com/javagraph/javagraph/internal/engerr"
	"github.com/javagraph/javagraph/internal/inspector"
	"github.com/javagraph/javagraph/internal/schedule/toposort"
)

// Layer is a set of inspector names whose Requires are satisfied by prior
// layers; inspectors within one layer are mutually independent and may run
// concurrently.
type Layer []string

// Resolve computes the topological layering of descs: an edge runs from
// producer P to consumer C whenever P.Produces intersects C.Requires. On a
// cycle, Resolve fails with an engerr.ConfigurationError naming the
// offending inspectors, per the scenario where two inspectors each require
// what the other produces. When several valid orderings exist, ties are
// broken by lexicographically smallest inspector name, matching the
// resolver's documented preference.
func Resolve(descs []inspector.Descriptor) ([]Layer, error) {
	names := make([]string, 0, len(descs))
	byName := make(map[string]inspector.Descriptor, len(descs))

	for _, d := range descs {
		names = append(names, d.Name)
		byName[d.Name] = d
	}

	sort.Strings(names)

	producers := make(map[string][]string) // tag -> producing inspector names

	for _, name := range names {
		for _, tag := range byName[name].Produces {
			producers[tag] = append(producers[tag], name)
		}
	}

	g := toposort.NewGraph()
	for _, name := range names {
		g.AddNode(name)
	}

	indegree := make(map[string]int, len(names))
	adjacency := make(map[string][]string, len(names))

	for _, name := range names {
		seen := make(map[string]bool)

		for _, tag := range byName[name].Requires {
			for _, producer := range producers[tag] {
				if producer == name || seen[producer] {
					continue
				}

				seen[producer] = true
				g.AddEdge(producer, name)
				adjacency[producer] = append(adjacency[producer], name)
				indegree[name]++
			}
		}
	}

	if _, ok := g.Toposort(); !ok {
		return nil, cycleError(g, names)
	}

	return layerize(names, adjacency, indegree), nil
}

// cycleError finds a cycle reachable from some node and reports it as a
// structured ConfigurationError.
func cycleError(g *toposort.Graph, names []string) error {
	for _, name := range names {
		if cycle := g.FindCycle(name); len(cycle) > 1 {
			return engerr.NewConfigurationError("inspector dependency cycle",
				fmt.Errorf("cycle among inspectors: %v", cycle))
		}
	}

	return engerr.NewConfigurationError("inspector dependency cycle", fmt.Errorf("cycle detected"))
}

// layerize runs Kahn's algorithm over the adjacency/indegree maps, grouping
// every batch of simultaneously-zero-indegree names into one Layer, with
// each layer's members sorted lexicographically for reproducible output.
func layerize(names []string, adjacency map[string][]string, indegree map[string]int) []Layer {
	remaining := make(map[string]int, len(names))
	for _, n := range names {
		remaining[n] = indegree[n]
	}

	var layers []Layer

	placed := make(map[string]bool, len(names))

	for len(placed) < len(names) {
		var layer Layer

		for _, n := range names {
			if !placed[n] && remaining[n] == 0 {
				layer = append(layer, n)
			}
		}

		sort.Strings(layer)

		for _, n := range layer {
			placed[n] = true
		}

		for _, n := range layer {
			for _, next := range adjacency[n] {
				remaining[next]--
			}
		}

		layers = append(layers, layer)
	}

	return layers
}
