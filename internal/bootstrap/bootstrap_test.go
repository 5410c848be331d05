package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambia-creative/assessment/pkg/config"
)

func TestLoadEngineDefaults(t *testing.T) {
	store, table, err := LoadEngine(config.EngineConfig{})
	require.NoError(t, err)
	assert.Equal(t, 13, store.Len())
	assert.NotEmpty(t, table.Sectors())
}

func TestLoadEngineBadFiles(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("themes: [\n"), 0644))

	_, _, err := LoadEngine(config.EngineConfig{LexiconPath: bad})
	assert.Error(t, err)

	_, _, err = LoadEngine(config.EngineConfig{WeightsPath: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestNewWithoutRedis(t *testing.T) {
	cfg := &config.Config{}
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "nested", "assessment.db")
	cfg.Ingestion.ReviewSelector = ".review"

	rt, err := New(cfg)
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Redis)
	assert.NotNil(t, rt.Service)
	assert.NoError(t, rt.Ready(context.Background()))
}
