package javabin

import (
	"os"
	"strings"

	"github.com/javagraph/javagraph/internal/engerr"
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/inspector"
	"github.com/javagraph/javagraph/internal/resource"
)

const collectorName = "javabin.collector"

// Collector implements inspector.Collector, parsing one .class ProjectFile
// into a single JavaClassNode. Unlike the source collector, one .class file
// always corresponds to exactly one class (inner/nested classes are
// separate ProjectFiles on disk, named Outer$Inner.class).
type Collector struct{}

// NewCollector builds the binary collector.
func NewCollector() *Collector { return &Collector{} }

// Descriptor implements inspector.Collector.
func (c *Collector) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{Name: collectorName, Variant: inspector.VariantProjectFile}
}

// Supports implements inspector.Collector: only .class ProjectFiles.
func (c *Collector) Supports(node *graph.Node) bool {
	ext, _ := node.Property(graph.PropExtension)
	return ext == "class"
}

// Collect implements inspector.Collector.
func (c *Collector) Collect(projectFile *graph.Node, repo *graph.Repository) error {
	pathVal, _ := projectFile.Property(graph.PropAbsolutePath)

	path, _ := pathVal.(string)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		repo.RecordError(projectFile, engerr.NewIoError(path, err).Error())
		return nil
	}

	cf, hasRecord, parseErr := Parse(raw)
	if parseErr != nil {
		repo.RecordError(projectFile, engerr.NewParseError(path, -1, parseErr).Error())
		return nil
	}

	fqn := resource.BinaryNameToFqn(cf.ThisClass)
	if fqn == "" {
		repo.RecordError(projectFile, "binary class: could not resolve this_class name")
		return nil
	}

	node, createErr := repo.GetOrCreateNode(graph.NodeTypeJavaClass, fqn)
	if createErr != nil {
		repo.RecordError(projectFile, createErr.Error())
		return nil
	}

	simpleName := fqn
	pkg := ""

	if idx := strings.LastIndex(fqn, "."); idx >= 0 {
		pkg = fqn[:idx]
		simpleName = fqn[idx+1:]
	}

	repo.MergeProperty(node, graph.PropSimpleName, simpleName)

	if pkg == "" {
		repo.MergeProperty(node, graph.PropPackageName, graph.ValueUnspecified)
	} else {
		repo.MergeProperty(node, graph.PropPackageName, pkg)
	}

	repo.MergeProperty(node, graph.PropClassType, cf.ClassType(hasRecord))
	repo.MergeProperty(node, graph.PropSourceType, graph.SourceTypeBinary)
	repo.MergeProperty(node, graph.PropProjectFile, projectFile.ID)

	totalComplexity := 0
	for _, dp := range cf.DecisionPoints {
		totalComplexity += 1 + dp // each method starts at complexity 1
	}

	repo.MergeProperty(node, graph.PropMethodCount, len(cf.Methods))
	repo.MergeProperty(node, graph.PropFieldCount, len(cf.Fields))
	repo.MergeProperty(node, graph.PropCyclomatic, totalComplexity)

	superFqn := resource.BinaryNameToFqn(cf.SuperClass)
	if superFqn == "" {
		superFqn = graph.ValueNotApplicable
	}

	interfaceFqns := make([]string, 0, len(cf.Interfaces))
	for _, iface := range cf.Interfaces {
		interfaceFqns = append(interfaceFqns, resource.BinaryNameToFqn(iface))
	}

	repo.MergeProperty(node, "superName", superFqn)
	repo.MergeProperty(node, "interfaceNames", interfaceFqns)
	repo.MergeProperty(node, "imports", importsFromConstantPool(cf))

	repo.EnableTag(node, "collected")

	repo.MergeProperty(projectFile, graph.PropHasBinary, true)
	repo.MergeProperty(projectFile, graph.PropClassName, simpleName)

	return nil
}

// importsFromConstantPool approximates the binary equivalent of a source
// file's import list: every distinct class named in the constant pool
// (superclass, interfaces, field/method descriptors) other than the class
// itself, giving Phase 4's edge builder the same "imports" property shape
// the source collector produces.
func importsFromConstantPool(cf *ClassFile) []string {
	seen := map[string]bool{cf.ThisClass: true}

	var out []string

	add := func(internalName string) {
		if internalName == "" || seen[internalName] {
			return
		}

		seen[internalName] = true
		out = append(out, resource.BinaryNameToFqn(internalName))
	}

	add(cf.SuperClass)

	for _, iface := range cf.Interfaces {
		add(iface)
	}

	for _, m := range cf.Fields {
		add(classNameFromFieldDescriptor(m.Descriptor))
	}

	for _, m := range cf.Methods {
		for _, cls := range classNamesFromMethodDescriptor(m.Descriptor) {
			add(cls)
		}
	}

	return out
}

func classNameFromFieldDescriptor(desc string) string {
	desc = strings.TrimLeft(desc, "[")
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}

	return ""
}

func classNamesFromMethodDescriptor(desc string) []string {
	var out []string

	i := 0
	for i < len(desc) {
		switch desc[i] {
		case '(', ')':
			i++
		case '[':
			i++
		case 'L':
			end := strings.IndexByte(desc[i:], ';')
			if end < 0 {
				return out
			}

			out = append(out, desc[i+1:i+end])
			i += end + 1
		default:
			i++
		}
	}

	return out
}
