// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaults are registered on every viper instance so unset keys still
// unmarshal to usable values.
var defaults = map[string]interface{}{
	"app.name":                  "catalog-assistant",
	"server.port":               8080,
	"camunda.max_jobs_active":   10,
	"camunda.timeout":           30000,
	"camunda.request_timeout":   30000,
	"database.postgres.port":    5432,
	"database.postgres.sslmode": "disable",

	"database.postgres.max_connections": 25,
	"database.postgres.max_idle":        5,

	"catalog.backend":          BackendMeilisearch,
	"catalog.index":            "products",
	"catalog.default_currency": "UGX",
	"catalog.default_category": "Unknown",
	"catalog.max_name_length":  50,
	"catalog.search_limit":     5,
	"catalog.max_results":      3,
	"catalog.timeout":          10000,

	"apis.genai.base_url":    "https://api.openai.com/v1",
	"apis.genai.model":       "gpt-4o-mini",
	"apis.genai.timeout":     30000,
	"apis.genai.max_retries": 2,

	"tracking.poll_interval": 5000,
	"tracking.batch_size":    50,
	"tracking.max_polls":     720,
	"idempotency.ttl":        86400,

	"logging.level":  "info",
	"logging.format": "json",
	"logging.output": "stdout",
}

// secretEnv binds secrets to well-known variables; earlier names win.
var secretEnv = map[string][]string{
	"apis.genai.api_key":          {"GENAI_API_KEY", "OPENAI_API_KEY"},
	"catalog.meilisearch.url":     {"MEILI_URL"},
	"catalog.meilisearch.api_key": {"MEILI_API_KEY"},
	"database.postgres.user":      {"DB_USER"},
	"database.postgres.password":  {"DB_PASSWORD"},
	"database.redis.password":     {"REDIS_PASSWORD"},
}

var defaultWorker = WorkerConfig{
	Enabled:       true,
	MaxJobsActive: 5,
	Timeout:       30000,
	MaxRetries:    3,
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for key, envs := range secretEnv {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configs/config.yaml, then configs/config.<APP_ENVIRONMENT>.yaml
// on top when present. A missing base file is not an error.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	for _, dir := range []string{"./configs", "../../configs", "."} {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName("config." + env)
	_ = v.MergeInConfig()

	return decode(v)
}

// LoadFromFile reads exactly one file; used by tests and the query CLI.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	expandPlaceholders(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	for name, w := range cfg.Workers {
		cfg.Workers[name] = fillWorker(w)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func fillWorker(w WorkerConfig) WorkerConfig {
	if w.MaxJobsActive == 0 {
		w.MaxJobsActive = defaultWorker.MaxJobsActive
	}
	if w.Timeout == 0 {
		w.Timeout = defaultWorker.Timeout
	}
	if w.MaxRetries == 0 {
		w.MaxRetries = defaultWorker.MaxRetries
	}
	return w
}

// expandPlaceholders resolves ${VAR} references left in string values.
// Placeholders whose variable is unset become empty.
func expandPlaceholders(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok || !strings.Contains(s, "$") {
			continue
		}
		v.Set(key, os.ExpandEnv(s))
	}
}

// loadEnvFile loads the nearest .env between the working directory and the
// module root. Variables already set in the environment are kept.
func loadEnvFile() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	require(cfg.Camunda.BrokerAddress != "", "camunda.broker_address is required")

	switch cfg.Catalog.Backend {
	case BackendMeilisearch:
		require(cfg.Catalog.Meilisearch.URL != "", "catalog.meilisearch.url is required for the meilisearch backend")
	case BackendElasticsearch:
		require(cfg.Database.Elasticsearch.GetURL() != "", "database.elasticsearch.addresses or url is required for the elasticsearch backend")
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("catalog.backend must be %q, %q or %q, got %q",
			BackendMeilisearch, BackendElasticsearch, BackendMemory, cfg.Catalog.Backend))
	}

	require(cfg.Catalog.MaxResults > 0, "catalog.max_results must be positive")
	require(cfg.Tracking.PollInterval > 0, "tracking.poll_interval must be positive")
	require(cfg.Tracking.MaxPolls >= 0, "tracking.max_polls must not be negative")

	if cfg.Tracking.Enabled {
		require(cfg.Database.Postgres.Host != "", "database.postgres.host is required when tracking is enabled")
		require(cfg.Database.Postgres.Database != "", "database.postgres.database is required when tracking is enabled")
	}
	require(!cfg.Idempotency.Enabled || cfg.Database.Redis.Address != "", "database.redis.address is required when idempotency is enabled")
	require(!cfg.Notifications.SMS.Enabled || cfg.Notifications.SMS.Region != "", "notifications.sms.region is required when sms is enabled")

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// GetDuration converts a millisecond setting to a time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig returns the named worker section, or the defaults when
// the section is absent.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, ok := cfg.Workers[workerName]; ok {
		return w
	}
	return defaultWorker
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	return GetWorkerConfig(cfg, workerName).Enabled
}
