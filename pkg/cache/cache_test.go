package cache

import (
	"testing"
	"time"

	"kcmc/pkg/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Backend != BackendMemory {
		t.Errorf("expected backend 'memory', got %s", opts.Backend)
	}
	if opts.DefaultTTL != time.Hour {
		t.Errorf("expected default TTL 1h, got %v", opts.DefaultTTL)
	}
	if opts.MaxEntries != 10000 {
		t.Errorf("expected max entries 10000, got %d", opts.MaxEntries)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.CacheConfig{
		Driver:     "redis",
		Host:       "redis.local",
		Port:       6380,
		Password:   "secret",
		DB:         1,
		DefaultTTL: 10 * time.Minute,
		MaxEntries: 500,
	}

	opts := FromConfig(cfg)

	if opts.Backend != "redis" {
		t.Errorf("expected backend 'redis', got %s", opts.Backend)
	}
	if opts.RedisAddr != "redis.local:6380" {
		t.Errorf("expected addr 'redis.local:6380', got %s", opts.RedisAddr)
	}
	if opts.RedisPassword != "secret" || opts.RedisDB != 1 {
		t.Errorf("unexpected credentials %q/%d", opts.RedisPassword, opts.RedisDB)
	}
	if opts.MaxEntries != 500 {
		t.Errorf("expected max entries 500, got %d", opts.MaxEntries)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		wantErr bool
	}{
		{name: "memory", opts: &Options{Backend: BackendMemory}},
		{name: "empty backend", opts: &Options{}},
		{name: "nil options", opts: nil},
		{name: "unknown backend", opts: &Options{Backend: "memcached"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer c.Close()

			if _, ok := c.(*MemoryCache); !ok {
				t.Errorf("expected *MemoryCache, got %T", c)
			}
		})
	}
}
