package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("service:\n  name: \"\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "eidos-tunables", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.HTTPPort)
	assert.Equal(t, SourceDB, cfg.Tunables.Source)
	assert.Equal(t, 5*time.Minute, cfg.Tunables.CacheTTL())
	assert.Equal(t, 3*time.Second, cfg.Tunables.FetchTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.Tunables.RetryBackoff())
	assert.Equal(t, 5, cfg.Tunables.Breaker.FailureThreshold)
	assert.Equal(t, "eidos:tunables:invalidate", cfg.Redis.Channel)
	assert.Equal(t, "tunables-changes", cfg.Kafka.Topic)
	assert.Equal(t, "eidos-tunables", cfg.Kafka.ClientID)
	assert.Equal(t, "EIDOS_GROUP", cfg.Nacos.Group)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_Values(t *testing.T) {
	content := `
service:
  name: tunables-test
  http_port: 9090
tunables:
  source: nacos
  cache_ttl_sec: 60
  fetch_timeout_ms: 500
  serve_stale_on_error: true
  write_retries: 2
  breaker:
    enabled: true
    failure_threshold: 3
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`
	cfg, err := Parse([]byte(content))
	require.NoError(t, err)

	assert.Equal(t, "tunables-test", cfg.Service.Name)
	assert.Equal(t, 9090, cfg.Service.HTTPPort)
	assert.Equal(t, SourceNacos, cfg.Tunables.Source)
	assert.Equal(t, time.Minute, cfg.Tunables.CacheTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.Tunables.FetchTimeout())
	assert.True(t, cfg.Tunables.ServeStaleOnError)
	assert.False(t, cfg.Tunables.CacheFallback)
	assert.Equal(t, 2, cfg.Tunables.WriteRetries)
	assert.True(t, cfg.Tunables.Breaker.Enabled)
	assert.Equal(t, 3, cfg.Tunables.Breaker.FailureThreshold)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "tunables-test", cfg.Kafka.ClientID)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TUNABLES_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnvVars("host: ${TUNABLES_TEST_HOST:localhost}"))
	assert.Equal(t, "port: 5432", expandEnvVars("port: ${TUNABLES_TEST_UNSET:5432}"))
	assert.Equal(t, "pw: ", expandEnvVars("pw: ${TUNABLES_TEST_UNSET}"))
	assert.Equal(t, "no vars", expandEnvVars("no vars"))
	assert.Equal(t, "broken ${OPEN", expandEnvVars("broken ${OPEN"))
}

func TestLoad(t *testing.T) {
	t.Setenv("TUNABLES_TEST_TTL", "120")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tunables:\n  cache_ttl_sec: ${TUNABLES_TEST_TTL:300}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Tunables.CacheTTL())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("service: [unterminated"))
	assert.Error(t, err)
}
