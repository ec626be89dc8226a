package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javagraph/javagraph/internal/inspector"
)

func desc(name string, requires, produces []string) inspector.Descriptor {
	return inspector.Descriptor{Name: name, Requires: requires, Produces: produces}
}

func TestResolveLayersIndependentInspectors(t *testing.T) {
	t.Parallel()

	layers, err := Resolve([]inspector.Descriptor{
		desc("b", nil, nil),
		desc("a", nil, nil),
	})
	require.NoError(t, err)
	require.Len(t, layers, 1)
	require.Equal(t, Layer{"a", "b"}, layers[0])
}

func TestResolveOrdersProducerBeforeConsumer(t *testing.T) {
	t.Parallel()

	layers, err := Resolve([]inspector.Descriptor{
		desc("consumer", []string{"edgesBuilt"}, nil),
		desc("producer", nil, []string{"edgesBuilt"}),
	})
	require.NoError(t, err)
	require.Len(t, layers, 2)
	require.Equal(t, Layer{"producer"}, layers[0])
	require.Equal(t, Layer{"consumer"}, layers[1])
}

func TestResolveDetectsCycle(t *testing.T) {
	t.Parallel()

	_, err := Resolve([]inspector.Descriptor{
		desc("x", []string{"y-done"}, []string{"x-done"}),
		desc("y", []string{"x-done"}, []string{"y-done"}),
	})
	require.Error(t, err)
}

func TestResolveBreaksTiesLexicographically(t *testing.T) {
	t.Parallel()

	layers, err := Resolve([]inspector.Descriptor{
		desc("zeta", []string{"base"}, nil),
		desc("alpha", []string{"base"}, nil),
		desc("root", nil, []string{"base"}),
	})
	require.NoError(t, err)
	require.Len(t, layers, 2)
	require.Equal(t, Layer{"root"}, layers[0])
	require.Equal(t, Layer{"alpha", "zeta"}, layers[1])
}

func TestResolveNoDuplicateEdgeFromSharedTag(t *testing.T) {
	t.Parallel()

	// "producer" produces two tags the consumer requires; it must still
	// appear in only one earlier layer, not create a self-cycle or
	// duplicate scheduling.
	layers, err := Resolve([]inspector.Descriptor{
		desc("consumer", []string{"tagA", "tagB"}, nil),
		desc("producer", nil, []string{"tagA", "tagB"}),
	})
	require.NoError(t, err)
	require.Len(t, layers, 2)
	require.Equal(t, Layer{"producer"}, layers[0])
	require.Equal(t, Layer{"consumer"}, layers[1])
}
