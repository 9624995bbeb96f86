package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Courier  CourierConfig  `yaml:"courier"`
	Notifier NotifierConfig `yaml:"notifier"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	StatusChangedTopicName string `yaml:"status_changed_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type CourierConfig struct {
	HTTPAddr      string `yaml:"http_addr"`
	JWTSigningKey string `yaml:"jwt_signing_key"`

	// PermissiveTransitions turns the status state machine off: any valid
	// status is then accepted from any non-terminal state. Enforcement is
	// the default.
	PermissiveTransitions bool `yaml:"permissive_transitions"`

	SnapshotTTLSeconds int `yaml:"snapshot_ttl_seconds"`
}

type NotifierConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	SinkBaseURL string `yaml:"sink_base_url"`
	SinkAPIKey  string `yaml:"sink_api_key"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
