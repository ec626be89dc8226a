// Package serialize defines the stable, on-disk snapshot format one
// analysis run produces: a schema-versioned document containing the run's
// phase diagnostics plus every node and edge in the graph. JSON (via
// encoding/json, whose map keys sort naturally) is the canonical format;
// YAML is offered as a human-friendlier companion through the same
// Document shape.
package serialize

import "time"

// SchemaVersion is bumped whenever Document's shape changes in a way that
// breaks existing consumers.
const SchemaVersion = 1

// Document is the root of a serialized analysis snapshot.
type Document struct {
	SchemaVersion int      `json:"schemaVersion" yaml:"schemaVersion"`
	Run           RunDoc   `json:"run" yaml:"run"`
	Nodes         []NodeDoc `json:"nodes" yaml:"nodes"`
	Edges         []EdgeDoc `json:"edges" yaml:"edges"`
}

// RunDoc records the run-level metadata: the project analyzed and each
// phase's ExecutionProfile, in the order the scheduler ran them.
type RunDoc struct {
	ProjectRoot string     `json:"projectRoot" yaml:"projectRoot"`
	StartedAt   time.Time  `json:"startedAt" yaml:"startedAt"`
	FinishedAt  time.Time  `json:"finishedAt" yaml:"finishedAt"`
	Phases      []PhaseDoc `json:"phases" yaml:"phases"`
}

// PhaseDoc is the serialized form of one progress.ExecutionProfile.
type PhaseDoc struct {
	Phase          string    `json:"phase" yaml:"phase"`
	StartedAt      time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt" yaml:"finishedAt"`
	NodesProcessed int       `json:"nodesProcessed" yaml:"nodesProcessed"`
	Passes         int       `json:"passes" yaml:"passes"`
	Converged      bool      `json:"converged" yaml:"converged"`
}

// NodeDoc is the serialized form of one graph.Node.
type NodeDoc struct {
	Type               string            `json:"type" yaml:"type"`
	ID                 string            `json:"id" yaml:"id"`
	Properties         map[string]any    `json:"properties" yaml:"properties"`
	Tags               []string          `json:"tags" yaml:"tags"`
	ExecutedInspectors map[string]string `json:"executedInspectors" yaml:"executedInspectors"`
	LastModified       time.Time         `json:"lastModified" yaml:"lastModified"`
	Diagnostics        []string          `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// EdgeRefDoc is the serialized form of a graph.NodeRef used as an edge
// endpoint.
type EdgeRefDoc struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// EdgeDoc is the serialized form of one graph.Edge.
type EdgeDoc struct {
	ID         string         `json:"id" yaml:"id"`
	Source     EdgeRefDoc     `json:"source" yaml:"source"`
	Target     EdgeRefDoc     `json:"target" yaml:"target"`
	EdgeType   string         `json:"edgeType" yaml:"edgeType"`
	Properties map[string]any `json:"properties" yaml:"properties"`
}
