package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "KCMC_"
	configEnvVar = "KCMC_CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
	dotenvFiles []string
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/kcmc/config.yaml",
		},
		envPrefix:   envPrefix,
		dotenvFiles: []string{".env"},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithDotenv задаёт .env файлы, подгружаемые перед чтением окружения
func WithDotenv(files ...string) LoaderOption {
	return func(l *Loader) {
		l.dotenvFiles = files
	}
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables, включая .env (самый высокий)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Файл не обязателен
	_ = l.loadConfigFile()

	// .env не перезаписывает уже заданные переменные
	l.loadDotenv()

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "kcmc-svc",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// HTTP
		"http.port":             8080,
		"http.read_timeout":     30 * time.Second,
		"http.write_timeout":    5 * time.Minute,
		"http.shutdown_timeout": 10 * time.Second,
		"http.max_body_bytes":   32 * 1024 * 1024,
		"http.h2c":              true,
		"http.docs_path":        "/docs",

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stderr",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.path":      "/metrics",
		"metrics.namespace": "kcmc",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "kcmc-svc",
		"tracing.sample_rate":  0.1,

		// Cache
		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": time.Hour,
		"cache.max_entries": 10000,

		// Rate limit
		"rate_limit.enabled":    false,
		"rate_limit.requests":   60,
		"rate_limit.window":     time.Minute,
		"rate_limit.strategy":   "sliding_window",
		"rate_limit.backend":    "memory",
		"rate_limit.burst_size": 10,
		"rate_limit.key_func":   "ip",

		// Engine
		"engine.default_k":              1,
		"engine.default_m":              1,
		"engine.methods":                []string{},
		"engine.max_sensors":            0,
		"engine.workers":                4,
		"engine.run_timeout":            10 * time.Minute,
		"engine.fitness_valid_weight":   1.0,
		"engine.fitness_invalid_weight": -1.0,
		"engine.fitness_memo_size":      4096,

		// Report
		"report.default_format": "tsv",
		"report.title":          "KCMC optimizer runtime",
		"report.author":         "kcmc-svc",
		"report.output_dir":     ".",
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadDotenv подгружает .env файлы в окружение процесса, отсутствующие файлы пропускаются
func (l *Loader) loadDotenv() {
	for _, f := range l.dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// loadEnv загружает конфигурацию из переменных окружения.
// KCMC_ENGINE_DEFAULT_K -> engine.default_k: первое подчёркивание отделяет секцию,
// кроме составных секций вроде rate_limit.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, any) {
		key := EnvKey(strings.TrimPrefix(envKey, l.envPrefix))
		if key == "" {
			return "", nil
		}

		if isSliceField(key) {
			return key, splitAndTrim(value)
		}

		return key, value
	}), nil)
}

// EnvKey переводит имя переменной без префикса в ключ конфига
func EnvKey(name string) string {
	name = strings.ToLower(name)
	for _, section := range compoundSections {
		if field, ok := strings.CutPrefix(name, section+"_"); ok && field != "" {
			return section + "." + field
		}
	}

	section, field, ok := strings.Cut(name, "_")
	if !ok || section == "" || field == "" {
		return ""
	}
	if section == "config" {
		return ""
	}
	return section + "." + field
}

// compoundSections - секции с подчёркиванием в имени
var compoundSections = []string{"rate_limit"}

// sliceFields - поля, которые должны парситься как слайсы
var sliceFields = map[string]bool{
	"engine.methods": true,
}

func isSliceField(key string) bool {
	return sliceFields[key]
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}
