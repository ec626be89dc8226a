package persist

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewYAMLCodec()

	original := testState{
		Name:   "test",
		Count:  42,
		Values: map[string]int{"a": 1, "b": 2},
	}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, original.Name, decoded.Name)
	assert.Equal(t, original.Count, decoded.Count)
	assert.Equal(t, original.Values, decoded.Values)
}

func TestYAMLCodec_Extension(t *testing.T) {
	t.Parallel()

	codec := NewYAMLCodec()
	assert.Equal(t, ".yaml", codec.Extension())
}

func TestYAMLCodec_DecodeError(t *testing.T) {
	t.Parallel()

	codec := NewYAMLCodec()

	var decoded testState
	err := codec.Decode(bytes.NewReader([]byte("not: [valid yaml")), &decoded)
	require.Error(t, err)
}

func TestSaveState_YAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewYAMLCodec()

	original := testState{Name: "saved", Count: 7, Values: map[string]int{"x": 1}}

	require.NoError(t, SaveState(dir, "state", codec, original))

	var decoded testState
	require.NoError(t, LoadState(dir, "state", codec, &decoded))

	assert.Equal(t, original, decoded)
}
