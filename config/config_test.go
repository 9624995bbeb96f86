package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  status_changed_topic_name: "courier.status-changed"
redis:
  host: "localhost"
  port: 6379
courier:
  http_addr: ":8080"
  jwt_signing_key: "secret"
  permissive_transitions: true
  snapshot_ttl_seconds: 600
notifier:
  http_addr: ":8082"
  kafka_consumer_group: "courier-notifier"
  sink_base_url: "http://localhost:9100"
  rate_limit_per_minute: 30
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "courier.status-changed", cfg.Kafka.StatusChangedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.Courier.HTTPAddr)
	require.True(t, cfg.Courier.PermissiveTransitions)
	require.Equal(t, "courier-notifier", cfg.Notifier.KafkaConsumerGroup)
	require.Equal(t, 30, cfg.Notifier.RateLimitPerMinute)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
