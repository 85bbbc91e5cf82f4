package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:    AppConfig{Name: "kcmc-svc"},
		HTTP:   HTTPConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		Engine: EngineConfig{DefaultK: 1, DefaultM: 1},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: "app.name"},
		{name: "invalid port - zero", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: "http.port"},
		{name: "invalid port - too high", mutate: func(c *Config) { c.HTTP.Port = 70000 }, wantErr: "http.port"},
		{name: "invalid log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
		{name: "empty log level defaults", mutate: func(c *Config) { c.Log.Level = "" }},
		{
			name:    "unknown cache driver",
			mutate:  func(c *Config) { c.Cache = CacheConfig{Enabled: true, Driver: "memcached"} },
			wantErr: "cache.driver",
		},
		{
			name:   "unknown driver ignored when disabled",
			mutate: func(c *Config) { c.Cache = CacheConfig{Driver: "memcached"} },
		},
		{name: "negative k", mutate: func(c *Config) { c.Engine.DefaultK = -1 }, wantErr: "engine.default_k"},
		{name: "negative max sensors", mutate: func(c *Config) { c.Engine.MaxSensors = -5 }, wantErr: "engine.max_sensors"},
		{
			name:   "rate limit disabled ignores fields",
			mutate: func(c *Config) { c.RateLimit = RateLimitConfig{Backend: "etcd"} },
		},
		{
			name: "rate limit valid",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, Requests: 10, Window: time.Second, Strategy: "sliding_window", Backend: "memory"}
			},
		},
		{
			name: "rate limit zero window",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, Requests: 10, Strategy: "sliding_window", Backend: "memory"}
			},
			wantErr: "rate_limit.window",
		},
		{
			name: "rate limit token bucket on redis",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, Requests: 10, Window: time.Second, Strategy: "token_bucket", Backend: "redis"}
			},
			wantErr: "token_bucket",
		},
		{name: "bad report format", mutate: func(c *Config) { c.Report.DefaultFormat = "docx" }, wantErr: "report.default_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateJoinsAllProblems(t *testing.T) {
	cfg := Config{Log: LogConfig{Level: "loud"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, part := range []string{"app.name", "http.port", "log.level"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("error %q does not mention %q", err, part)
		}
	}
}

func TestConfig_Environment(t *testing.T) {
	cfg := Config{App: AppConfig{Environment: "dev"}}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("dev should be development")
	}
	cfg.App.Environment = "production"
	if cfg.IsDevelopment() || !cfg.IsProduction() {
		t.Error("production should be production")
	}
}

func TestAddresses(t *testing.T) {
	if got := (HTTPConfig{Port: 8080}).Address(); got != ":8080" {
		t.Errorf("HTTP address = %s", got)
	}
	if got := (CacheConfig{Host: "redis", Port: 6379}).Address(); got != "redis:6379" {
		t.Errorf("cache address = %s", got)
	}
}
