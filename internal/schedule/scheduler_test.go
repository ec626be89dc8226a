package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javagraph/javagraph/internal/config"
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/inspector"
	"github.com/javagraph/javagraph/internal/progress"
)

// tagOnceInspector enables a tag the first time it sees a node, then is
// up-to-date forever after (a normal converging inspector).
type tagOnceInspector struct {
	name string
	tag  string
}

func (i tagOnceInspector) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{Name: i.name, Variant: inspector.VariantProjectFile, Produces: []string{i.tag}}
}

func (i tagOnceInspector) Supports(*graph.Node) bool { return true }

func (i tagOnceInspector) Inspect(_ *graph.Node, dec *inspector.Decorator) error {
	dec.EnableTag(i.tag)

	return nil
}

// neverConvergesInspector adds a new property key on every invocation,
// which changes its node's fingerprint. Two of them, one requiring what the
// other produces, sit in separate layers and make each other stale on every
// pass, so the loop never reaches a fixed point on its own.
type neverConvergesInspector struct {
	name     string
	requires []string
	produces []string
}

func (i neverConvergesInspector) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{
		Name: i.name, Variant: inspector.VariantProjectFile,
		Requires: i.requires, Produces: i.produces,
	}
}

func (neverConvergesInspector) Supports(*graph.Node) bool { return true }

func (i neverConvergesInspector) Inspect(node *graph.Node, dec *inspector.Decorator) error {
	next := 0
	for {
		if _, ok := node.Property(fmt.Sprintf("%s.%d", i.name, next)); !ok {
			break
		}

		next++
	}

	dec.SetProperty(fmt.Sprintf("%s.%d", i.name, next), true)

	return nil
}

func newTestOptions(t *testing.T, root string) *config.Options {
	t.Helper()

	return &config.Options{
		ProjectRoot: root,
		MaxPasses:   3,
		Parallelism: 2,
		Output:      config.OutputConfig{Dir: t.TempDir(), Format: "json"},
	}
}

func writeJavaFile(t *testing.T, root, name string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("class "+name+" {}"), 0o644))
}

func TestRunFileDiscoveryCreatesProjectFileNodes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeJavaFile(t, root, "A.java")
	writeJavaFile(t, root, "B.java")

	registry := inspector.NewRegistry()
	sched := New(newTestOptions(t, root), registry, progress.Silent{}, nil)

	profiles, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 4) // discovery, collection, project-file loop, class loop

	files := sched.Repository().AllNodes(graph.NodeTypeProjectFile)
	require.Len(t, files, 2)
}

func TestRunConvergesWithTagInspector(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeJavaFile(t, root, "A.java")

	registry := inspector.NewRegistry()
	require.NoError(t, registry.RegisterInspector(tagOnceInspector{name: "tagger", tag: "tagged"}))

	sched := New(newTestOptions(t, root), registry, progress.Silent{}, nil)

	profiles, err := sched.Run(context.Background())
	require.NoError(t, err)

	projectFileProfile := profiles[2]
	require.Equal(t, PhaseProjectFileAnalysis, projectFileProfile.Phase)
	require.True(t, projectFileProfile.Converged)

	nodes := sched.Repository().AllNodes(graph.NodeTypeProjectFile)
	require.Len(t, nodes, 1)
	require.True(t, nodes[0].HasTag("tagged"))
}

func TestRunRecordsConvergenceWarningOnMaxPassesExhaustion(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeJavaFile(t, root, "A.java")

	registry := inspector.NewRegistry()
	require.NoError(t, registry.RegisterInspector(neverConvergesInspector{
		name: "never.converges.a", produces: []string{"ping"},
	}))
	require.NoError(t, registry.RegisterInspector(neverConvergesInspector{
		name: "never.converges.b", requires: []string{"ping"},
	}))

	opts := newTestOptions(t, root)
	opts.MaxPasses = 2

	sched := New(opts, registry, progress.Silent{}, nil)

	profiles, err := sched.Run(context.Background())
	require.NoError(t, err)

	projectFileProfile := profiles[2]
	require.False(t, projectFileProfile.Converged)
	require.Equal(t, opts.MaxPasses, projectFileProfile.Passes)

	nodes := sched.Repository().AllNodes(graph.NodeTypeProjectFile)
	require.Len(t, nodes, 1)
	require.NotEmpty(t, nodes[0].Diagnostics)
}

func TestRunFailsOnInspectorDependencyCycle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeJavaFile(t, root, "A.java")

	registry := inspector.NewRegistry()
	require.NoError(t, registry.RegisterInspector(cyclicInspector{name: "x", requires: "y-done", produces: "x-done"}))
	require.NoError(t, registry.RegisterInspector(cyclicInspector{name: "y", requires: "x-done", produces: "y-done"}))

	sched := New(newTestOptions(t, root), registry, progress.Silent{}, nil)

	_, err := sched.Run(context.Background())
	require.Error(t, err)
}

// cyclicInspector lets the test wire up a pair that each require what the
// other produces, forming a two-node cycle the resolver must reject.
type cyclicInspector struct {
	name     string
	requires string
	produces string
}

func (i cyclicInspector) Descriptor() inspector.Descriptor {
	return inspector.Descriptor{
		Name:     i.name,
		Variant:  inspector.VariantProjectFile,
		Requires: []string{i.requires},
		Produces: []string{i.produces},
	}
}

func (cyclicInspector) Supports(*graph.Node) bool { return true }

func (i cyclicInspector) Inspect(_ *graph.Node, dec *inspector.Decorator) error {
	dec.EnableTag(i.produces)

	return nil
}
