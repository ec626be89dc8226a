package javasrc

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/javagraph/javagraph/internal/engerr"
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/inspector"
)

// collectorName is the stable name this collector registers under.
const collectorName = "javasrc.collector"

// typeDeclarationKinds maps a tree-sitter node type to the classType value
// it should produce. Order here is irrelevant; precedence among
// simultaneously-set access-flag bits is a binary-parser concern (§4.B),
// source declarations are unambiguous by grammar construction.
var typeDeclarationKinds = map[string]string{
	"class_declaration":            graph.ClassTypeClass,
	"interface_declaration":        graph.ClassTypeInterface,
	"enum_declaration":             graph.ClassTypeEnum,
	"annotation_type_declaration":  graph.ClassTypeAnnotation,
	"record_declaration":           graph.ClassTypeRecord,
}

// Collector implements inspector.Collector, parsing one .java ProjectFile
// into JavaClassNode instances for every top-level and nested type
// declaration it contains.
type Collector struct{}

// NewCollector builds the source collector.
func NewCollector() *Collector { return &Collector{} }

// Descriptor implements inspector.Collector.
func (c *Collector) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{Name: collectorName, Variant: inspector.VariantProjectFile}
}

// Supports implements inspector.Collector: only .java ProjectFiles.
func (c *Collector) Supports(node *graph.Node) bool {
	ext, _ := node.Property(graph.PropExtension)
	return ext == "java"
}

// Collect implements inspector.Collector.
func (c *Collector) Collect(projectFile *graph.Node, repo *graph.Repository) error {
	pathVal, _ := projectFile.Property(graph.PropAbsolutePath)

	path, _ := pathVal.(string)
	if path == "" {
		return nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		repo.RecordError(projectFile, fmt.Sprintf("read %s: %v", path, err))
		return nil
	}

	tree, root, parseErr := ParseTree(context.Background(), source)
	if parseErr != nil {
		repo.RecordError(projectFile, engerr.NewParseError(path, -1, parseErr).Error())
		return nil
	}
	defer tree.Close()

	if hasErrorNode(root) {
		repo.RecordError(projectFile, engerr.NewParseError(path, -1, errSyntax).Error())
		// Still attempt extraction: partial class nodes may be recoverable.
	}

	pkg := packageName(root, source)

	walkTypeDeclarations(root, source, pkg, func(decl sitter.Node, simpleName, kind string) {
		fqn := simpleName
		if pkg != "" {
			fqn = pkg + "." + simpleName
		}

		node, createErr := repo.GetOrCreateNode(graph.NodeTypeJavaClass, fqn)
		if createErr != nil {
			repo.RecordError(projectFile, createErr.Error())
			return
		}

		repo.MergeProperty(node, graph.PropSimpleName, simpleName)
		repo.MergeProperty(node, graph.PropPackageName, orUnknown(pkg))
		repo.MergeProperty(node, graph.PropClassType, kind)
		repo.MergeProperty(node, graph.PropSourceType, graph.SourceTypeSource)
		repo.MergeProperty(node, graph.PropProjectFile, projectFile.ID)

		methodCount, fieldCount, complexity := countMembers(decl, source)
		repo.MergeProperty(node, graph.PropMethodCount, methodCount)
		repo.MergeProperty(node, graph.PropFieldCount, fieldCount)
		repo.MergeProperty(node, graph.PropCyclomatic, complexity)

		imports := importNames(root, source)
		repo.MergeProperty(node, "imports", imports)
		repo.MergeProperty(node, "superName", superclassName(decl, source))
		repo.MergeProperty(node, "interfaceNames", interfaceNames(decl, source))

		repo.EnableTag(node, tagCollected)
	})

	repo.MergeProperty(projectFile, graph.PropPackageName, orUnknown(pkg))
	repo.MergeProperty(projectFile, graph.PropHasSource, true)

	return nil
}

const tagCollected = "collected"

var errSyntax = fmt.Errorf("source contains one or more syntax errors")

func orUnknown(s string) string {
	if s == "" {
		return graph.ValueUnknown
	}

	return s
}

func packageName(root sitter.Node, source []byte) string {
	count := root.NamedChildCount()
	for i := uint32(0); i < count; i++ {
		child := root.NamedChild(i)
		if child.Type() == "package_declaration" {
			if nameNode := child.ChildByFieldName("name"); !nameNode.IsNull() {
				return text(nameNode, source)
			}

			return strings.TrimSuffix(strings.TrimPrefix(text(child, source), "package "), ";")
		}
	}

	return ""
}

func importNames(root sitter.Node, source []byte) []string {
	var out []string

	count := root.NamedChildCount()
	for i := uint32(0); i < count; i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_declaration" {
			continue
		}

		raw := text(child, source)
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "import "), ";")
		raw = strings.TrimPrefix(raw, "static ")
		out = append(out, strings.TrimSpace(raw))
	}

	return out
}

// walkTypeDeclarations recursively visits decl nodes for every type
// declaration reachable from n (top-level and nested), invoking visit for
// each with its simple name and classType.
func walkTypeDeclarations(n sitter.Node, source []byte, _ string, visit func(sitter.Node, string, string)) {
	if n.IsNull() {
		return
	}

	if kind, ok := typeDeclarationKinds[n.Type()]; ok {
		if nameNode := n.ChildByFieldName("name"); !nameNode.IsNull() {
			visit(n, text(nameNode, source), kind)
		}
	}

	count := n.NamedChildCount()
	for i := uint32(0); i < count; i++ {
		walkTypeDeclarations(n.NamedChild(i), source, "", visit)
	}
}

func superclassName(decl sitter.Node, source []byte) string {
	superclass := decl.ChildByFieldName("superclass")
	if superclass.IsNull() {
		return graph.ValueNotApplicable
	}

	count := superclass.NamedChildCount()
	for i := uint32(0); i < count; i++ {
		child := superclass.NamedChild(i)
		if child.Type() == "type_identifier" || child.Type() == "generic_type" {
			return text(child, source)
		}
	}

	return graph.ValueNotApplicable
}

func interfaceNames(decl sitter.Node, source []byte) []string {
	interfaces := decl.ChildByFieldName("interfaces")
	if interfaces.IsNull() {
		return nil
	}

	var out []string

	count := interfaces.NamedChildCount()
	for i := uint32(0); i < count; i++ {
		typeList := interfaces.NamedChild(i)

		listCount := typeList.NamedChildCount()
		for j := uint32(0); j < listCount; j++ {
			out = append(out, text(typeList.NamedChild(j), source))
		}
	}

	return out
}

// decisionPointKinds are the tree-sitter node types counted toward
// cyclomatic complexity: if, for, enhanced-for, while and do statements,
// catch clauses, switch labels and ternaries, plus each && and || (counted
// separately below). The binary parser counts conditional jumps and one per
// switch instruction, so the two counts for the same class can differ.
var decisionPointKinds = map[string]bool{
	"if_statement":          true,
	"for_statement":         true,
	"enhanced_for_statement": true,
	"while_statement":       true,
	"do_statement":          true,
	"catch_clause":          true,
	"switch_label":          true,
	"ternary_expression":    true,
	"binary_expression":     false, // only && / || count, handled separately below
}

func countMembers(decl sitter.Node, source []byte) (methodCount, fieldCount, complexity int) {
	body := decl.ChildByFieldName("body")
	if body.IsNull() {
		return 0, 0, 0
	}

	count := body.NamedChildCount()
	for i := uint32(0); i < count; i++ {
		child := body.NamedChild(i)

		switch child.Type() {
		case "method_declaration", "constructor_declaration":
			methodCount++
			complexity += 1 + countDecisionPoints(child, source)
		case "field_declaration":
			fieldCount += countDeclarators(child)
		}
	}

	return methodCount, fieldCount, complexity
}

func countDeclarators(fieldDecl sitter.Node) int {
	n := 0
	count := fieldDecl.NamedChildCount()

	for i := uint32(0); i < count; i++ {
		if fieldDecl.NamedChild(i).Type() == "variable_declarator" {
			n++
		}
	}

	if n == 0 {
		return 1
	}

	return n
}

func countDecisionPoints(n sitter.Node, source []byte) int {
	if n.IsNull() {
		return 0
	}

	total := 0
	if decisionPointKinds[n.Type()] {
		total++
	}

	if n.Type() == "binary_expression" {
		op := text(n, source)
		if strings.Contains(op, "&&") || strings.Contains(op, "||") {
			total++
		}
	}

	count := n.NamedChildCount()
	for i := uint32(0); i < count; i++ {
		total += countDecisionPoints(n.NamedChild(i), source)
	}

	return total
}
