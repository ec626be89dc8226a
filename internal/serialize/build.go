package serialize

import (
	"sort"
	"time"

	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/progress"
)

var allNodeTypes = []graph.NodeType{
	graph.NodeTypeProjectFile,
	graph.NodeTypeJavaClass,
	graph.NodeTypeJavaPackage,
	graph.NodeTypeJavaMethod,
	graph.NodeTypeJavaField,
}

// BuildDocument snapshots repo and the run's phase profiles into a
// serializable Document. Node and edge ordering is deterministic (sorted
// by type then id) so repeated runs over identical input produce
// byte-identical output.
func BuildDocument(projectRoot string, startedAt, finishedAt time.Time, profiles []progress.ExecutionProfile, repo *graph.Repository) Document {
	doc := Document{
		SchemaVersion: SchemaVersion,
		Run: RunDoc{
			ProjectRoot: projectRoot,
			StartedAt:   startedAt,
			FinishedAt:  finishedAt,
		},
	}

	for _, p := range profiles {
		doc.Run.Phases = append(doc.Run.Phases, PhaseDoc{
			Phase:          p.Phase,
			StartedAt:      p.StartedAt,
			FinishedAt:     p.FinishedAt,
			NodesProcessed: p.NodesProcessed,
			Passes:         p.Passes,
			Converged:      p.Converged,
		})
	}

	for _, nodeType := range allNodeTypes {
		for _, n := range repo.AllNodes(nodeType) {
			doc.Nodes = append(doc.Nodes, nodeDoc(n))
		}
	}

	for _, e := range sortedEdges(repo.AllEdges()) {
		doc.Edges = append(doc.Edges, EdgeDoc{
			ID:         e.ID,
			Source:     EdgeRefDoc{Type: string(e.Source.Type), ID: e.Source.ID},
			Target:     EdgeRefDoc{Type: string(e.Target.Type), ID: e.Target.ID},
			EdgeType:   e.Type,
			Properties: e.Properties,
		})
	}

	return doc
}

func nodeDoc(n *graph.Node) NodeDoc {
	tagSet := n.TagSet()
	tags := make([]string, 0, len(tagSet))

	for t := range tagSet {
		tags = append(tags, t)
	}

	sort.Strings(tags)

	properties := n.PropertiesSnapshot()

	executed := make(map[string]string)
	for name, at := range n.ExecutedSnapshot() {
		executed[name] = at.Format(time.RFC3339Nano)
	}

	return NodeDoc{
		Type:               string(n.Type),
		ID:                 n.ID,
		Properties:         properties,
		Tags:               tags,
		ExecutedInspectors: executed,
		LastModified:       n.LastModified,
		Diagnostics:        n.Diagnostics,
	}
}

func sortedEdges(edges []*graph.Edge) []*graph.Edge {
	out := make([]*graph.Edge, len(edges))
	copy(out, edges)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source.ID != out[j].Source.ID {
			return out[i].Source.ID < out[j].Source.ID
		}

		if out[i].Target.ID != out[j].Target.ID {
			return out[i].Target.ID < out[j].Target.ID
		}

		return out[i].Type < out[j].Type
	})

	return out
}
