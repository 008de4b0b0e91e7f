// Package config loads service settings from config/config.yaml, .env and the
// environment, plus the model routing file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"startup_valuation/pkg/core/agent"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RateLimitConfig struct {
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
	Backend string        `mapstructure:"backend"` // memory | redis
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LLMConfig struct {
	ModelsFile        string        `mapstructure:"models_file"`
	ResourcesDir      string        `mapstructure:"resources_dir"`
	LenientJSON       bool          `mapstructure:"lenient_json"`
	MaxCallsPerSecond float64       `mapstructure:"max_calls_per_second"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)

	v.SetDefault("ratelimit.limit", 60)
	v.SetDefault("ratelimit.window", 60*time.Second)
	v.SetDefault("ratelimit.backend", "memory")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.url", "")
	v.SetDefault("store.dir", filepath.Join(".cache", "valuation_events"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("llm.models_file", filepath.Join("config", "models.yaml"))
	v.SetDefault("llm.resources_dir", "resources")
	v.SetDefault("llm.lenient_json", false)
	v.SetDefault("llm.max_calls_per_second", 0)
	v.SetDefault("llm.request_timeout", 60*time.Second)
}

// Load reads .env, then config.yaml from searchPaths (./config and . when none
// are given), then environment overrides such as SERVER_PORT or DATABASE_URL.
// A missing config file is not an error.
func Load(searchPaths ...string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"./config", "."}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.RateLimit.Limit <= 0 {
		return fmt.Errorf("ratelimit.limit must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive")
	}
	switch cfg.RateLimit.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis.address required for redis rate limiting")
		}
	default:
		return fmt.Errorf("unknown ratelimit.backend %q", cfg.RateLimit.Backend)
	}
	return nil
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// LoadModels reads the model routing file. A missing file yields the default
// routing (every agent on the active provider).
func LoadModels(path string) (agent.Config, error) {
	var cfg agent.Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
