package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) Config {
	return Config{
		Port:               "8081",
		AuthHeader:         "X-User-ID",
		RateLimitPerMinute: 60,
		LogLevel:           "info",
		SQLiteDBPath:       filepath.Join(t.TempDir(), "fintrack.db"),
		MirrorBackend:      MirrorNone,
		MirrorBatchSize:    100,
		ImportSessionTTL:   30 * time.Minute,
		ImportMaxRows:      5000,
		SummaryCacheTTL:    time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errorString string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty auth header",
			mutate:      func(c *Config) { c.AuthHeader = " " },
			errorString: "auth header name cannot be empty",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "chatty" },
			errorString: "invalid log level 'chatty'",
		},
		{
			name:        "empty database path",
			mutate:      func(c *Config) { c.SQLiteDBPath = "" },
			errorString: "SQLite database path cannot be empty",
		},
		{
			name:        "invalid AMQP scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost"; c.AMQPExchange = "x"; c.AMQPQueue = "q" },
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name:        "AMQP without queue",
			mutate:      func(c *Config) { c.AMQPURL = "amqp://localhost"; c.AMQPExchange = "x" },
			errorString: "AMQP queue name cannot be empty when AMQP URL is provided",
		},
		{
			name:        "unknown mirror backend",
			mutate:      func(c *Config) { c.MirrorBackend = "excel" },
			errorString: "invalid mirror backend 'excel'",
		},
		{
			name:        "sheets mirror without spreadsheet",
			mutate:      func(c *Config) { c.MirrorBackend = MirrorSheets; c.GoogleSheetName = "Transactions" },
			errorString: "Google Spreadsheet ID is required when using sheets mirror",
		},
		{
			name:        "zero rate limit",
			mutate:      func(c *Config) { c.RateLimitPerMinute = 0 },
			errorString: "invalid rate limit 0",
		},
		{
			name:        "short session ttl",
			mutate:      func(c *Config) { c.ImportSessionTTL = time.Second },
			errorString: "invalid import session ttl 1s",
		},
		{
			name:        "oversized mirror batch",
			mutate:      func(c *Config) { c.MirrorBatchSize = 2000 },
			errorString: "invalid mirror batch size 2000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errorString == "" {
				if err != nil {
					t.Fatalf("Config.Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Config.Validate() error = %v, want error containing %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Port = "abc"
	cfg.MirrorBackend = "excel"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid port") || !strings.Contains(err.Error(), "invalid mirror backend") {
		t.Errorf("expected both problems to be reported, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	for _, key := range []string{"PORT", "AUTH_HEADER", "SQLITE_DB_PATH", "AMQP_URL", "MIRROR_BACKEND", "IMPORT_SESSION_TTL", "IMPORT_MAX_ROWS", "SUMMARY_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	t.Run("default values", func(t *testing.T) {
		cfg := Load()
		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.AuthHeader != "X-User-ID" {
			t.Errorf("Load() AuthHeader = %v, want X-User-ID", cfg.AuthHeader)
		}
		if cfg.MirrorBackend != MirrorNone {
			t.Errorf("Load() MirrorBackend = %v, want none", cfg.MirrorBackend)
		}
		if cfg.ImportSessionTTL != 30*time.Minute {
			t.Errorf("Load() ImportSessionTTL = %v, want 30m", cfg.ImportSessionTTL)
		}
		if cfg.AMQPURL != "" {
			t.Errorf("Load() AMQPURL = %v, want empty", cfg.AMQPURL)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("AUTH_HEADER", "X-Account-Owner")
		t.Setenv("MIRROR_BACKEND", "memory")
		t.Setenv("IMPORT_SESSION_TTL", "10m")
		t.Setenv("IMPORT_MAX_ROWS", "250")
		t.Setenv("SUMMARY_CACHE_TTL", "not-a-duration")

		cfg := Load()
		if cfg.Port != "9090" || cfg.AuthHeader != "X-Account-Owner" || cfg.MirrorBackend != MirrorMemory {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.ImportSessionTTL != 10*time.Minute || cfg.ImportMaxRows != 250 {
			t.Errorf("unexpected import settings %v %v", cfg.ImportSessionTTL, cfg.ImportMaxRows)
		}
		if cfg.SummaryCacheTTL != 5*time.Minute {
			t.Errorf("invalid duration must fall back to default, got %v", cfg.SummaryCacheTTL)
		}
	})
}
