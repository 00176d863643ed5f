package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Server.RateLimitRPS)
	assert.InDelta(t, 5.0, cfg.Proximity.WalkingSpeedKMH, 0.001)
	assert.InDelta(t, 15.0, cfg.Proximity.CyclingSpeedKMH, 0.001)
	assert.InDelta(t, 1.3, cfg.Proximity.RouteFactor, 0.001)
	assert.InDelta(t, 3.0, cfg.Proximity.SearchWindowKM, 0.001)
	assert.Equal(t, []float64{0.5, 1, 1.5, 2, 3, 5, 7.5, 10}, cfg.Proximity.RadiusLadderKM)
	assert.InDelta(t, 0.30, cfg.Proximity.CategoryWeights["university"], 0.001)
	assert.Equal(t, 4, cfg.Scoring.Concurrency)
	assert.InDelta(t, 2.0, cfg.Scoring.TransitRadiusKM, 0.001)
	assert.InDelta(t, 10.0, cfg.Scoring.UniversityRadiusKM, 0.001)
	assert.InDelta(t, 0.25, cfg.Scoring.Weights.UniversityProximity, 0.001)
	assert.NoError(t, cfg.Scoring.Weights.Validate())
	assert.InDelta(t, 0.5, cfg.Cluster.BaseCellSizeDeg, 0.001)
	assert.Equal(t, 15, cfg.Cluster.FullDetailZoom)
	assert.Equal(t, 17, cfg.Cluster.SingletonZoom)
	assert.Equal(t, 300, cfg.Cluster.CacheTTLSecs)
	assert.InDelta(t, 0.3, cfg.Market.DemandRatio, 0.001)
	assert.InDelta(t, 150.0, cfg.Market.BaselineRentPerWeek, 0.001)
	assert.Equal(t, 20, cfg.Market.TopNeighborhoods)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/geointel
log:
  level: debug
  format: console
server:
  port: 9090
proximity:
  route_factor: 1.4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 1.4, cfg.Proximity.RouteFactor, 0.001)
	// Defaults still apply for unset values
	assert.InDelta(t, 5.0, cfg.Proximity.WalkingSpeedKMH, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GEOINTEL_STORE_DRIVER", "postgres")
	t.Setenv("GEOINTEL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("GEOINTEL_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadRejectsBadWeights(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
scoring:
  weights:
    accessibility: 0.9
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
