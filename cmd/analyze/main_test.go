package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidal_efficiency/internal/ingest"
)

func TestLoadRecords_NeedsInputs(t *testing.T) {
	_, _, err := loadRecords("gen.csv", "", "", ingest.EncodingUTF8)
	assert.Error(t, err)
}

func TestLoadBaseline_ShippedArtifact(t *testing.T) {
	b, info, err := loadBaseline(filepath.Join("..", "..", "config", "baseline_2024.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 30844.9, b.Global())
	assert.NotEmpty(t, info.Source)
}

func TestWriteFile_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.csv")

	err := writeFile(path, func(f *os.File) error {
		_, err := f.WriteString("ok\n")
		return err
	})

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(data))
}

func TestHeadOp(t *testing.T) {
	assert.Equal(t, ">=", headOp(true))
	assert.Equal(t, ">", headOp(false))
}
