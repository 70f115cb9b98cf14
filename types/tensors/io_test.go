package tensors

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGobSerialization(t *testing.T) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	want := FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, want.GobSerialize(enc))

	dec := gob.NewDecoder(&buf)
	got, err := GobDeserialize(dec)
	require.NoError(t, err)
	require.True(t, got.Equal(want))
}

func TestSaveAndLoad(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "weights.bin")
	want := FromValue([][]float64{{1.5, -2}, {0, 42}})
	require.NoError(t, want.Save(filePath))

	got, err := Load(filePath)
	require.NoError(t, err)
	require.True(t, got.Equal(want))
	require.Equal(t, []int{2, 2}, got.Shape().Dimensions)

	_, err = Load(filepath.Join(t.TempDir(), "no-such-file.bin"))
	require.Error(t, err)
}