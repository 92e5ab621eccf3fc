package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvConfigFile names an optional TOML file layered under the environment.
const EnvConfigFile = "STORAGE_ALERT_CONFIG"

type Config struct {
	HTTP    HTTPConfig    `toml:"http"`
	Log     LogConfig     `toml:"log"`
	Kafka   KafkaConfig   `toml:"kafka"`
	Metrics MetricsConfig `toml:"metrics"`
	Pprof   PprofConfig   `toml:"pprof"`
}

type HTTPConfig struct {
	Port   string `toml:"port"`
	Target string `toml:"target"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// KafkaConfig drives the bridge. An empty Broker leaves it off.
type KafkaConfig struct {
	Broker    string `toml:"broker"`
	Topic     string `toml:"topic"`
	GroupID   string `toml:"group_id"`
	Workers   int    `toml:"workers"`
	QueueSize int    `toml:"queue_size"`
}

type MetricsConfig struct {
	Port string `toml:"port"`
}

type PprofConfig struct {
	Port string `toml:"port"`
}

func defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:   "8080",
			Target: "fileStorageAlert",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Kafka: KafkaConfig{
			Topic:     "storage.events",
			GroupID:   "storage-alert",
			Workers:   4,
			QueueSize: 1024,
		},
	}
}

// LoadConfig returns defaults, overlaid by the TOML file named in
// STORAGE_ALERT_CONFIG (if set and present), overlaid by the environment.
// A missing file is skipped; any other failure to read it is returned.
func LoadConfig() (Config, error) {
	cfg := defaults()

	if path := os.Getenv(EnvConfigFile); path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return cfg, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Port = getEnv("PORT", cfg.HTTP.Port)
	cfg.HTTP.Target = getEnv("FUNCTION_TARGET", cfg.HTTP.Target)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", cfg.Log.Format))
	cfg.Kafka.Broker = getEnv("KAFKA_BROKER", cfg.Kafka.Broker)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.Kafka.Workers = getEnvInt("WORKERS", cfg.Kafka.Workers)
	cfg.Kafka.QueueSize = getEnvInt("QUEUE_SIZE", cfg.Kafka.QueueSize)
	cfg.Metrics.Port = getEnv("METRICS_PORT", cfg.Metrics.Port)
	cfg.Pprof.Port = getEnv("PPROF_PORT", cfg.Pprof.Port)
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Target == "" {
		errs = append(errs, errors.New("function target must not be empty"))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log format %q must be json or console", c.Log.Format))
	}
	if c.Kafka.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers:%d must be >0", c.Kafka.Workers))
	}
	if c.Kafka.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue_size:%d must be >0", c.Kafka.QueueSize))
	}
	return errors.Join(errs...)
}

// BridgeEnabled reports whether a Kafka broker is configured.
func (c Config) BridgeEnabled() bool {
	return c.Kafka.Broker != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
