package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port      int      `env:"TEST_CFG_PORT" envDefault:"8080"`
	Backend   string   `env:"TEST_CFG_BACKEND" envDefault:"file"`
	Debounce  int      `env:"TEST_CFG_DEBOUNCE_MS" envDefault:"250"`
	Brokers   []string `env:"TEST_CFG_BROKERS" envDefault:"a:9092,b:9092" envSeparator:","`
	Telemetry bool     `env:"TEST_CFG_TELEMETRY" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "file", cfg.Backend)
	assert.Equal(t, 250, cfg.Debounce)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
	assert.False(t, cfg.Telemetry)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BACKEND", "redis")
	t.Setenv("TEST_CFG_TELEMETRY", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis", cfg.Backend)
	assert.True(t, cfg.Telemetry)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadFrom_UsesGivenEnvironment(t *testing.T) {
	t.Setenv("TEST_CFG_BACKEND", "postgres")

	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{
		"TEST_CFG_DEBOUNCE_MS": "0",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Debounce)
	// The process environment is ignored.
	assert.Equal(t, "file", cfg.Backend)
}

type requiredConfig struct {
	Dir string `env:"TEST_CFG_DIR,required"`
}

func TestLoadFrom_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := LoadFrom(&cfg, map[string]string{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
