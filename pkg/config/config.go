// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Engine    EngineConfig    `koanf:"engine"`
	Report    ReportConfig    `koanf:"report"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig - настройки HTTP сервера
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	H2C             bool          `koanf:"h2c"`
	DocsPath        string        `koanf:"docs_path"` // пусто - без Swagger UI
}

// Address возвращает адрес для net.Listen
func (h HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// CacheConfig - настройки кэширования результатов
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig - ограничение запросов к HTTP API
type RateLimitConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Requests  int           `koanf:"requests"`
	Window    time.Duration `koanf:"window"`
	Strategy  string        `koanf:"strategy"` // sliding_window, token_bucket
	Backend   string        `koanf:"backend"`  // memory, redis
	BurstSize int           `koanf:"burst_size"`
	KeyFunc   string        `koanf:"key_func"` // ip, route, ip_route
}

// EngineConfig - параметры движка KCMC
type EngineConfig struct {
	DefaultK   int      `koanf:"default_k"`
	DefaultM   int      `koanf:"default_m"`
	Methods    []string `koanf:"methods"`     // методы набора по умолчанию
	MaxSensors int      `koanf:"max_sensors"` // 0 - без ограничения
	Workers    int      `koanf:"workers"`     // параллельные минимизаторы

	RunTimeout time.Duration `koanf:"run_timeout"`

	// Фитнес для битовых масок
	FitnessValidWeight   float64 `koanf:"fitness_valid_weight"`
	FitnessInvalidWeight float64 `koanf:"fitness_invalid_weight"`
	FitnessMemoSize      int     `koanf:"fitness_memo_size"`
}

// ReportConfig - настройки отчётов о прогонах
type ReportConfig struct {
	DefaultFormat string `koanf:"default_format"` // tsv, json, md, xlsx, pdf
	Title         string `koanf:"title"`
	Author        string `koanf:"author"`
	OutputDir     string `koanf:"output_dir"`
}

// Validate проверяет конфигурацию и возвращает все найденные проблемы
func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	validDrivers := map[string]bool{"memory": true, "redis": true}
	if c.Cache.Enabled && !validDrivers[c.Cache.Driver] {
		errs = append(errs, fmt.Errorf("cache.driver must be one of: memory, redis, got %s", c.Cache.Driver))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be positive"))
		}
		if !validDrivers[c.RateLimit.Backend] {
			errs = append(errs, fmt.Errorf("rate_limit.backend must be one of: memory, redis, got %s", c.RateLimit.Backend))
		}
		validStrategies := map[string]bool{"sliding_window": true, "token_bucket": true}
		if !validStrategies[c.RateLimit.Strategy] {
			errs = append(errs, fmt.Errorf("rate_limit.strategy must be one of: sliding_window, token_bucket, got %s", c.RateLimit.Strategy))
		}
		if c.RateLimit.Backend == "redis" && c.RateLimit.Strategy == "token_bucket" {
			errs = append(errs, errors.New("rate_limit.strategy token_bucket is not supported by the redis backend"))
		}
	}

	if c.Engine.DefaultK < 0 || c.Engine.DefaultM < 0 {
		errs = append(errs, fmt.Errorf("engine.default_k and engine.default_m must be non-negative, got %d and %d",
			c.Engine.DefaultK, c.Engine.DefaultM))
	}
	if c.Engine.MaxSensors < 0 {
		errs = append(errs, errors.New("engine.max_sensors must be non-negative"))
	}
	if c.Engine.FitnessMemoSize < 0 {
		errs = append(errs, errors.New("engine.fitness_memo_size must be non-negative"))
	}

	validFormats := map[string]bool{"tsv": true, "json": true, "md": true, "xlsx": true, "pdf": true}
	if c.Report.DefaultFormat != "" && !validFormats[c.Report.DefaultFormat] {
		errs = append(errs, fmt.Errorf("report.default_format must be one of: tsv, json, md, xlsx, pdf, got %s", c.Report.DefaultFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
