package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ccmEnvVars is the full set of variables the loader reads; tests clear and
// restore them so the ambient environment cannot leak in.
var ccmEnvVars = []string{
	"CCM_HTTP_PORT",
	"CCM_API_TOKEN",
	"CCM_STORE",
	"CCM_DB_HOST",
	"CCM_DB_PORT",
	"CCM_DB_USERNAME",
	"CCM_DB_PASSWORD",
	"CCM_DB_NAME",
	"CCM_PAGE_SIZE",
	"CCM_PAGE_DELAY_MS",
	"CCM_RETENTION_SECONDS",
	"CCM_LIKED_COLLECTION",
	"CCM_EVENTS_ENABLED",
	"CCM_EVENTS_TYPE",
	"CCM_EVENTS_KAFKA_BROKERS",
	"CCM_EVENTS_KAFKA_HOST",
	"CCM_EVENTS_KAFKA_PORT",
	"CCM_EVENTS_KAFKA_TOPIC",
	"CCM_EVENTS_PULSAR_URL",
	"CCM_EVENTS_PULSAR_TOPIC",
	"CCM_CONFIG_FILE",
}

func withCleanEnv(t *testing.T, env map[string]string) {
	t.Helper()
	saved := make(map[string]string)
	for _, key := range ccmEnvVars {
		if value, ok := os.LookupEnv(key); ok {
			saved[key] = value
		}
		os.Unsetenv(key)
	}
	for key, value := range env {
		os.Setenv(key, value)
	}
	t.Cleanup(func() {
		for _, key := range ccmEnvVars {
			os.Unsetenv(key)
		}
		for key, value := range saved {
			os.Setenv(key, value)
		}
	})
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, config *Config)
	}{
		{
			name: "defaults with required token",
			env: map[string]string{
				"CCM_API_TOKEN": "test-token",
			},
			validate: func(t *testing.T, config *Config) {
				if config.Server.HTTPPort != "7070" {
					t.Errorf("expected HTTP port 7070, got %s", config.Server.HTTPPort)
				}
				if config.Store.Type != "postgres" {
					t.Errorf("expected store type postgres, got %s", config.Store.Type)
				}
				if config.Engine.PageSize != 200 {
					t.Errorf("expected page size 200, got %d", config.Engine.PageSize)
				}
				if config.Engine.PageDelay != 100*time.Millisecond {
					t.Errorf("expected page delay 100ms, got %s", config.Engine.PageDelay)
				}
				if config.Engine.Retention != 300*time.Second {
					t.Errorf("expected retention 300s, got %s", config.Engine.Retention)
				}
				if config.Engine.LikedCollection != "Liked Companies List" {
					t.Errorf("expected default liked collection, got %s", config.Engine.LikedCollection)
				}
				if config.Events.Enabled {
					t.Error("expected events disabled by default")
				}
			},
		},
		{
			name:        "missing API token",
			env:         map[string]string{},
			wantErr:     true,
			errContains: "CCM_API_TOKEN",
		},
		{
			name: "custom engine tuning",
			env: map[string]string{
				"CCM_API_TOKEN":         "test-token",
				"CCM_PAGE_SIZE":         "50",
				"CCM_PAGE_DELAY_MS":     "10",
				"CCM_RETENTION_SECONDS": "60",
				"CCM_LIKED_COLLECTION":  "Favourites",
			},
			validate: func(t *testing.T, config *Config) {
				if config.Engine.PageSize != 50 {
					t.Errorf("expected page size 50, got %d", config.Engine.PageSize)
				}
				if config.Engine.PageDelay != 10*time.Millisecond {
					t.Errorf("expected page delay 10ms, got %s", config.Engine.PageDelay)
				}
				if config.Engine.Retention != time.Minute {
					t.Errorf("expected retention 1m, got %s", config.Engine.Retention)
				}
				if config.Engine.LikedCollection != "Favourites" {
					t.Errorf("expected liked collection Favourites, got %s", config.Engine.LikedCollection)
				}
			},
		},
		{
			name: "invalid page size",
			env: map[string]string{
				"CCM_API_TOKEN": "test-token",
				"CCM_PAGE_SIZE": "0",
			},
			wantErr:     true,
			errContains: "page size must be positive",
		},
		{
			name: "unsupported store type",
			env: map[string]string{
				"CCM_API_TOKEN": "test-token",
				"CCM_STORE":     "redis",
			},
			wantErr:     true,
			errContains: "unsupported store type",
		},
		{
			name: "memory store",
			env: map[string]string{
				"CCM_API_TOKEN": "test-token",
				"CCM_STORE":     "memory",
			},
			validate: func(t *testing.T, config *Config) {
				if config.Store.Type != "memory" {
					t.Errorf("expected store type memory, got %s", config.Store.Type)
				}
			},
		},
		{
			name: "kafka broker list",
			env: map[string]string{
				"CCM_API_TOKEN":            "test-token",
				"CCM_EVENTS_ENABLED":       "true",
				"CCM_EVENTS_KAFKA_BROKERS": "broker1:9092,broker2:9092",
			},
			validate: func(t *testing.T, config *Config) {
				if !config.Events.Enabled {
					t.Error("expected events enabled")
				}
				if len(config.Events.KafkaBrokers) != 2 {
					t.Fatalf("expected 2 brokers, got %d", len(config.Events.KafkaBrokers))
				}
				if config.Events.KafkaBrokers[0] != "broker1:9092" {
					t.Errorf("unexpected first broker: %s", config.Events.KafkaBrokers[0])
				}
			},
		},
		{
			name: "kafka host and port fallback",
			env: map[string]string{
				"CCM_API_TOKEN":         "test-token",
				"CCM_EVENTS_KAFKA_HOST": "kafka.internal",
				"CCM_EVENTS_KAFKA_PORT": "9093",
			},
			validate: func(t *testing.T, config *Config) {
				if len(config.Events.KafkaBrokers) != 1 || config.Events.KafkaBrokers[0] != "kafka.internal:9093" {
					t.Errorf("unexpected brokers: %v", config.Events.KafkaBrokers)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withCleanEnv(t, tt.env)

			config, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, config)
			}
		})
	}
}

func TestLoadFromEnvFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ccm.yaml")
	content := `
server:
  http_port: "8081"
engine:
  page_size: 25
  liked_collection: "Starred"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	withCleanEnv(t, map[string]string{
		"CCM_API_TOKEN":   "test-token",
		"CCM_CONFIG_FILE": path,
	})

	config, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.HTTPPort != "8081" {
		t.Errorf("expected file port 8081, got %s", config.Server.HTTPPort)
	}
	if config.Engine.PageSize != 25 {
		t.Errorf("expected file page size 25, got %d", config.Engine.PageSize)
	}
	if config.Engine.LikedCollection != "Starred" {
		t.Errorf("expected file liked collection Starred, got %s", config.Engine.LikedCollection)
	}
	// Values the file does not set keep their env/default values.
	if config.Server.APIToken != "test-token" {
		t.Errorf("expected env token preserved, got %s", config.Server.APIToken)
	}
	if config.Store.Type != "postgres" {
		t.Errorf("expected default store type, got %s", config.Store.Type)
	}
}

func TestLoadFromEnvMissingFile(t *testing.T) {
	withCleanEnv(t, map[string]string{
		"CCM_API_TOKEN":   "test-token",
		"CCM_CONFIG_FILE": "/nonexistent/ccm.yaml",
	})

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestDSN(t *testing.T) {
	config := &Config{}
	config.Store.Host = "db.internal"
	config.Store.Port = "5433"
	config.Store.Username = "ccm"
	config.Store.Password = "secret"
	config.Store.Database = "collections"

	want := "host=db.internal port=5433 user=ccm password=secret dbname=collections sslmode=disable"
	if got := config.DSN(); got != want {
		t.Errorf("expected DSN %q, got %q", want, got)
	}
}
