package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAccumulatesPerDay(t *testing.T) {
	p, err := Load(testConfig{path: t.TempDir()})
	require.NoError(t, err)

	mon := time.Date(2025, time.October, 20, 8, 0, 0, 0, time.UTC)
	tue := mon.Add(24 * time.Hour)

	_, err = p.Add(mon, 10)
	require.NoError(t, err)
	dt, err := p.Add(mon.Add(time.Hour), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), dt.Steps)
	assert.Equal(t, "2025-10-20", dt.Day)

	_, err = p.Add(tue, 3)
	require.NoError(t, err)

	got, err := p.Day(mon)
	require.NoError(t, err)
	assert.Equal(t, int64(15), got.Steps)
	assert.True(t, got.UpdatedAt.Equal(mon.Add(time.Hour)))

	hist := p.History(context.Background())
	require.Len(t, hist, 2)
	assert.Equal(t, "2025-10-20", hist[0].Day)
	assert.Equal(t, "2025-10-21", hist[1].Day)
	assert.Equal(t, int64(3), hist[1].Steps)
}

func TestDayMissingIsZero(t *testing.T) {
	p, err := Load(testConfig{path: t.TempDir()})
	require.NoError(t, err)

	dt, err := p.Day(time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, DayTotal{Day: "2024-01-02"}, dt)
}

func TestAddRejectsNegative(t *testing.T) {
	p, err := Load(testConfig{path: t.TempDir()})
	require.NoError(t, err)
	_, err = p.Add(time.Now(), -1)
	assert.Error(t, err)
}

func TestAddZeroDoesNotWrite(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	require.NoError(t, err)

	_, err = p.Add(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "2025", "05", "01"))
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryLayoutOnDisk(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	require.NoError(t, err)

	_, err = p.Add(time.Date(2025, time.October, 19, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "2025", "10", "19"))
	require.NoError(t, err)

	// Reopening reads back what was written.
	again, err := Load(testConfig{path: base})
	require.NoError(t, err)
	assert.Len(t, again.History(context.Background()), 1)
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load(testConfig{})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("STEPPER_CONFIG_PATH", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7419", cfg.Addr)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.RetryInterval)
	assert.Equal(t, time.Second, cfg.EmitInterval)
	assert.Equal(t, 100.0, cfg.PixelsPerStep)
	assert.True(t, cfg.PetWindow)
	assert.Equal(t, PointerRobot, cfg.Pointer)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, filepath.IsAbs(cfg.HistoryPath), cfg.HistoryPath)
	assert.Equal(t, ".stepper.db", filepath.Base(cfg.HistoryPath))
	assert.Empty(t, cfg.File)
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STEPPER_CONFIG_PATH", dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".stepper.yaml"), []byte(`
pointer: simulated
tracker:
  pixels_per_step: 40
windows:
  pet: false
`), 0o644))
	t.Setenv("STEPPER_ADDR", "127.0.0.1:9000")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 40.0, cfg.PixelsPerStep)
	assert.False(t, cfg.PetWindow)
	assert.Equal(t, PointerSimulated, cfg.Pointer)
	assert.Equal(t, filepath.Join(dir, ".stepper.yaml"), cfg.File)
}

func TestConfigValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyPointer, "trackball")
	_, err := ConfigFromViper(v)
	assert.Error(t, err)

	v = viper.New()
	SetDefaults(v)
	v.Set(KeyPixelsPerStep, 0)
	_, err = ConfigFromViper(v)
	assert.Error(t, err)
}
