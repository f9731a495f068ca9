package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SW_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnv("host: ${SW_TEST_HOST}"))
	assert.Equal(t, "port: 5433", expandEnv("port: ${SW_TEST_MISSING:5433}"))
	assert.Equal(t, "key: ", expandEnv("key: ${SW_TEST_MISSING:}"))
	assert.Equal(t, "raw: ${SW_TEST_MISSING}", expandEnv("raw: ${SW_TEST_MISSING}"))
}

func TestLoadFromAppliesEnvFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("SW_TEST_KEY", "sk-test")

	writeConfig(t, dir, "config.yaml", `
llm:
  default_provider: openrouter
  providers:
    openrouter:
      api_key: ${SW_TEST_KEY}
      model: moonshotai/kimi-k2-thinking
      reasoning: true
      temperature: 0.7
quota:
  default_unit_limit: 25000
  legacy_floor: 25000
`)
	writeConfig(t, dir, "config.test.yaml", `
quota:
  flat_charge: 0
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	p := cfg.LLM.Providers["openrouter"]
	assert.Equal(t, "sk-test", p.APIKey)
	assert.True(t, p.Reasoning)
	require.NotNil(t, p.Temperature)
	assert.InDelta(t, 0.7, *p.Temperature, 1e-9)

	assert.EqualValues(t, 25000, cfg.Quota.DefaultUnitLimit)
	assert.EqualValues(t, 0, cfg.Quota.FlatCharge)
	assert.Equal(t, 60*time.Second, cfg.Quota.UsageCacheTTL)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadFromRejectsFloorAboveDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "none")
	writeConfig(t, dir, "config.yaml", `
quota:
  default_unit_limit: 1000
  legacy_floor: 5000
`)

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy_floor")
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
}

func TestValidateRejectsPlaceholderSecretInProduction(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "production")
	writeConfig(t, dir, "config.yaml", `
security:
  jwt:
    secret: change-me
`)

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestHTTPAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", HTTPConfig{Host: "0.0.0.0", Port: 8080}.Addr())
	assert.Equal(t, "localhost:6379", RedisConfig{Host: "localhost", Port: 6379}.Addr())
}
