// Package graph implements the typed property graph at the heart of the
// engine: nodes, edges, and the repository that owns them, with the
// merge-priority rule and per-node locking described for the Graph
// Repository component.
package graph

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// NodeType discriminates the tagged union of node variants.
type NodeType string

// The node variants named by the data model, plus the package/method/field
// variants called out as following the same contract.
const (
	NodeTypeProjectFile  NodeType = "project_file"
	NodeTypeJavaClass    NodeType = "java_class"
	NodeTypeJavaPackage  NodeType = "java_package"
	NodeTypeJavaMethod   NodeType = "java_method"
	NodeTypeJavaField    NodeType = "java_field"
)

// Well-known property keys used by the built-in collectors and inspectors.
// Downstream inspectors are free to introduce their own keys.
const (
	PropAbsolutePath  = "absolutePath"
	PropRelativePath  = "relativePath"
	PropFileName      = "fileName"
	PropExtension     = "extension"
	PropDiscoveredAt  = "discoveredAt"
	PropPackageName   = "packageName"
	PropClassName     = "className"
	PropHasSource     = "hasSource"
	PropHasBinary     = "hasBinary"

	PropSimpleName   = "simpleName"
	PropClassType    = "classType"
	PropSourceType   = "sourceType"
	PropProjectFile  = "projectFileId"
	PropMethodCount  = "methodCount"
	PropFieldCount   = "fieldCount"
	PropCyclomatic   = "cyclomaticComplexity"
	PropWMC          = "weightedMethodsPerClass"
	PropEfferent     = "efferentCoupling"
	PropAfferent     = "afferentCoupling"
	PropInstability  = "instability"

	PropDirectEfferent     = "directEfferent"
	PropDirectAfferent     = "directAfferent"
	PropTransitiveEfferent = "transitiveEfferent"
	PropTransitiveAfferent = "transitiveAfferent"
)

// Sentinel placeholder values recognized by the merge-priority rule.
const (
	ValueUnknown     = "UNKNOWN"
	ValueBoth        = "BOTH"
	ValueUnspecified = "UNSPECIFIED"
	ValueNotApplicable = "N/A"
	errorValuePrefix = "ERROR:"
)

// Class type classification, in the precedence order the binary parser
// must apply: annotation > interface > enum > record > class.
const (
	ClassTypeAnnotation = "annotation"
	ClassTypeInterface  = "interface"
	ClassTypeEnum       = "enum"
	ClassTypeRecord     = "record"
	ClassTypeClass      = "class"
)

// SourceType records which parser produced a JavaClassNode.
const (
	SourceTypeSource = "source"
	SourceTypeBinary = "binary"
	SourceTypeBoth   = ValueBoth
)

// PropertyValue is any serializable scalar, string, list of strings, or
// nested mapping. The repository does not interpret values beyond the
// merge-priority classification in classify.go.
type PropertyValue any

// Node is one vertex of the property graph. Its zero value is not usable;
// construct via NewNode. All mutation of Tags/Properties/Executed must go
// through the node's lock (acquired internally by Repository and Decorator)
// — callers outside this package should not touch the exported maps
// directly except via Repository/Decorator methods.
type Node struct {
	mu sync.Mutex

	Type NodeType
	ID   string

	Properties map[string]PropertyValue
	Tags       map[string]struct{}

	// Executed maps inspector name to the timestamp it last ran on this node.
	Executed map[string]time.Time

	LastModified time.Time

	// Diagnostics holds error messages appended via decorator.error, in
	// the order they were recorded.
	Diagnostics []string
}

// NewNode constructs an empty node of the given type and id. The caller
// should not use the result directly; it is installed into a Repository via
// GetOrCreateNode, which is the only path that assigns a creation timestamp.
func NewNode(nodeType NodeType, id string) *Node {
	return &Node{
		Type:       nodeType,
		ID:         id,
		Properties: make(map[string]PropertyValue),
		Tags:       make(map[string]struct{}),
		Executed:   make(map[string]time.Time),
	}
}

// HasTag reports whether the node currently carries tag.
func (n *Node) HasTag(tag string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, ok := n.Tags[tag]

	return ok
}

// TagSet returns a snapshot copy of the node's current tags.
func (n *Node) TagSet() map[string]struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(map[string]struct{}, len(n.Tags))
	for t := range n.Tags {
		out[t] = struct{}{}
	}

	return out
}

// Property returns the current value of key and whether it is set.
func (n *Node) Property(key string) (PropertyValue, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	v, ok := n.Properties[key]

	return v, ok
}

// PropertiesSnapshot returns a shallow copy of the property map.
func (n *Node) PropertiesSnapshot() map[string]PropertyValue {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(map[string]PropertyValue, len(n.Properties))
	for k, v := range n.Properties {
		out[k] = v
	}

	return out
}

// ExecutedSnapshot returns a shallow copy of the executed-inspector map,
// used by serialization to record every inspector that has touched a node.
func (n *Node) ExecutedSnapshot() map[string]time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(map[string]time.Time, len(n.Executed))
	for k, v := range n.Executed {
		out[k] = v
	}

	return out
}

// ExecutedAt returns the timestamp at which inspector last ran on this node.
func (n *Node) ExecutedAt(inspector string) (time.Time, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.Executed[inspector]

	return t, ok
}

// UpToDate implements the freshness rule: executedAt(I,n) >= n.lastModified.
func (n *Node) UpToDate(inspector string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.Executed[inspector]
	if !ok {
		return false
	}

	return !t.Before(n.LastModified)
}

// fingerprint computes the snapshot used by the multi-pass loop to detect
// whether a node changed during an inspector invocation: the set of tag
// names and property keys, independent of property values (per §4.F:
// "fingerprint(n) # tags + property keys").
func (n *Node) fingerprint() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return fingerprintLocked(n)
}

// Fingerprint64 returns an xxhash digest of the node's current fingerprint,
// cheap enough to take on every pass for large graphs without retaining the
// full string form.
func (n *Node) Fingerprint64() uint64 {
	return xxhash.Sum64String(n.fingerprint())
}
