package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server struct {
		HTTPPort string `yaml:"http_port"`
		APIToken string `yaml:"api_token"`
	} `yaml:"server"`
	Store struct {
		Type     string `yaml:"type"` // "postgres" or "memory"
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"store"`
	Engine struct {
		PageSize        int           `yaml:"page_size"`        // associations processed per page
		PageDelay       time.Duration `yaml:"page_delay"`       // cooperative delay between pages
		Retention       time.Duration `yaml:"retention"`        // how long terminal operations stay queryable
		LikedCollection string        `yaml:"liked_collection"` // well-known liked collection name
	} `yaml:"engine"`
	Events struct {
		Enabled            bool     `yaml:"enabled"`
		Type               string   `yaml:"type"` // "kafka" or "pulsar"
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaTopic         string   `yaml:"kafka_topic"`
		PulsarURL          string   `yaml:"pulsar_url"`
		PulsarTopic        string   `yaml:"pulsar_topic"`
	} `yaml:"events"`
}

// DefaultLikedCollection is the well-known name of the liked collection
const DefaultLikedCollection = "Liked Companies List"

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Server configuration
	config.Server.HTTPPort = getEnvOrDefault("CCM_HTTP_PORT", "7070")
	config.Server.APIToken = os.Getenv("CCM_API_TOKEN")
	if config.Server.APIToken == "" {
		return nil, fmt.Errorf("CCM_API_TOKEN environment variable is required")
	}

	// Store configuration
	config.Store.Type = getEnvOrDefault("CCM_STORE", "postgres")
	config.Store.Host = getEnvOrDefault("CCM_DB_HOST", "localhost")
	config.Store.Port = getEnvOrDefault("CCM_DB_PORT", "5432")
	config.Store.Username = getEnvOrDefault("CCM_DB_USERNAME", "postgres")
	config.Store.Password = os.Getenv("CCM_DB_PASSWORD")
	config.Store.Database = getEnvOrDefault("CCM_DB_NAME", "collections")

	// Engine configuration
	config.Engine.PageSize = getEnvInt("CCM_PAGE_SIZE", 200)
	config.Engine.PageDelay = time.Duration(getEnvInt("CCM_PAGE_DELAY_MS", 100)) * time.Millisecond
	config.Engine.Retention = time.Duration(getEnvInt("CCM_RETENTION_SECONDS", 300)) * time.Second
	config.Engine.LikedCollection = getEnvOrDefault("CCM_LIKED_COLLECTION", DefaultLikedCollection)

	// Events configuration
	config.Events.Enabled = getEnvOrDefault("CCM_EVENTS_ENABLED", "false") == "true"
	config.Events.Type = getEnvOrDefault("CCM_EVENTS_TYPE", "kafka")

	if kafkaBrokers := os.Getenv("CCM_EVENTS_KAFKA_BROKERS"); kafkaBrokers != "" {
		config.Events.KafkaBrokers = strings.Split(kafkaBrokers, ",")
	} else {
		kafkaHost := getEnvOrDefault("CCM_EVENTS_KAFKA_HOST", "localhost")
		kafkaPort := getEnvOrDefault("CCM_EVENTS_KAFKA_PORT", "9092")
		config.Events.KafkaBrokers = []string{fmt.Sprintf("%s:%s", kafkaHost, kafkaPort)}
	}
	config.Events.KafkaTopic = getEnvOrDefault("CCM_EVENTS_KAFKA_TOPIC", "ccm-operations")

	config.Events.PulsarURL = getEnvOrDefault("CCM_EVENTS_PULSAR_URL", "pulsar://localhost:6650")
	config.Events.PulsarTopic = getEnvOrDefault("CCM_EVENTS_PULSAR_TOPIC", "ccm-operations")

	// Optional YAML file overlay
	if path := os.Getenv("CCM_CONFIG_FILE"); path != "" {
		if err := config.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// mergeFile overlays values from a YAML file onto the config.
// Environment variables remain the base; file values win where set.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Engine.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.Engine.PageSize)
	}
	if c.Engine.Retention < 0 {
		return fmt.Errorf("retention must not be negative, got %s", c.Engine.Retention)
	}
	if c.Engine.LikedCollection == "" {
		return fmt.Errorf("liked collection name must not be empty")
	}
	switch c.Store.Type {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported store type: %s (supported: postgres, memory)", c.Store.Type)
	}
	return nil
}

// DSN builds the Postgres connection string from the store configuration
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Store.Host,
		c.Store.Port,
		c.Store.Username,
		c.Store.Password,
		c.Store.Database,
	)
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
