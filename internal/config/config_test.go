package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("ESSENTIA_PORT", "")
	t.Setenv("HOST", "")
	t.Setenv("FFMPEG_BIN", "")
	t.Setenv("AUBIO_BIN", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, "aubio", cfg.AubioBin)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
}

func TestLoadFromEnv_PortOverride(t *testing.T) {
	t.Setenv("ESSENTIA_PORT", "9191")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port)
}

func TestLoadFromEnv_InvalidPort(t *testing.T) {
	t.Setenv("ESSENTIA_PORT", "not-a-port")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_Timeouts(t *testing.T) {
	t.Setenv("ESSENTIA_PORT", "")
	t.Setenv("ANALYSIS_TIMEOUT", "45s")
	t.Setenv("REQUEST_TIMEOUT", "bogus")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.AnalysisTimeout)
	// Unparseable durations fall back to the default
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
}
