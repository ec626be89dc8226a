package graph

// NodeRef identifies a node by its type and id, the shape used both for
// edge endpoints and for the serialized document's node/edge references.
type NodeRef struct {
	Type NodeType
	ID   string
}

// Well-known edge types named by the data model.
const (
	EdgeImports    = "imports"
	EdgeDependsOn  = "depends_on"
	EdgeExtends    = "extends"
	EdgeImplements = "implements"
	EdgeContains   = "contains"
	EdgeCalls      = "calls"
	EdgeUses       = "uses"
)

// Edge is a directed, typed relationship between two nodes already present
// in the repository. Edges never own their endpoints; they are looked up
// non-owning by NodeRef. The repository assigns ID and de-duplicates on
// (Source, Target, Type).
type Edge struct {
	ID     string
	Source NodeRef
	Target NodeRef
	Type   string

	Properties map[string]PropertyValue
}

func edgeKey(source, target NodeRef, edgeType string) string {
	return string(source.Type) + "\x00" + source.ID + "\x00" +
		string(target.Type) + "\x00" + target.ID + "\x00" + edgeType
}
