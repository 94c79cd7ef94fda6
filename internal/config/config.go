package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type StoreConfig struct {
	Type       string `yaml:"type"`
	Location   string `yaml:"location"`
	Index      string `yaml:"index"`
	ApiKey     string `yaml:"api_key"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	VectorSize int    `yaml:"vector_size"`
	Refresh    string `yaml:"refresh"`
}

type EmbedderConfig struct {
	Type      string `yaml:"type"`
	ApiKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

type EngineConfig struct {
	TopK    int  `yaml:"top_k"`
	TagLock bool `yaml:"tag_lock"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Server   ServerConfig   `yaml:"server"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads .env, then the yaml file at path if it exists, then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Type {
	case "memory":
	case "opensearch", "qdrant", "postgres", "sqlite":
		if len(c.Store.Location) == 0 {
			return fmt.Errorf("store location is required for %s (UPSERTER_STORE_LOCATION or OPENSEARCH_URL)", c.Store.Type)
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	if len(c.Store.Index) == 0 {
		return errors.New("store index is required (UPSERTER_STORE_INDEX or OPENSEARCH_INDEX)")
	}

	switch c.Embedder.Type {
	case "hashing":
	case "openai", "google":
		if len(c.Embedder.ApiKey) == 0 {
			return fmt.Errorf("embedder api key is required for %s", c.Embedder.Type)
		}
	default:
		return fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}

	if c.Engine.TopK < 1 {
		return errors.New("engine top_k must be positive")
	}

	return nil
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Type:    "opensearch",
			Refresh: "true",
		},
		Embedder: EmbedderConfig{
			Type: "hashing",
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Engine: EngineConfig{
			TopK: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Store.Type = getEnv("UPSERTER_STORE_TYPE", cfg.Store.Type)
	cfg.Store.Location = getEnv("UPSERTER_STORE_LOCATION", getEnv("OPENSEARCH_URL", cfg.Store.Location))
	cfg.Store.Index = getEnv("UPSERTER_STORE_INDEX", getEnv("OPENSEARCH_INDEX", cfg.Store.Index))
	cfg.Store.ApiKey = getEnv("UPSERTER_STORE_API_KEY", cfg.Store.ApiKey)
	cfg.Store.Username = getEnv("UPSERTER_STORE_USERNAME", cfg.Store.Username)
	cfg.Store.Password = getEnv("UPSERTER_STORE_PASSWORD", cfg.Store.Password)
	cfg.Store.VectorSize = getEnvInt("UPSERTER_STORE_VECTOR_SIZE", cfg.Store.VectorSize)
	cfg.Store.Refresh = getEnv("UPSERTER_STORE_REFRESH", cfg.Store.Refresh)

	cfg.Embedder.Type = getEnv("UPSERTER_EMBEDDER_TYPE", cfg.Embedder.Type)
	cfg.Embedder.ApiKey = getEnv("UPSERTER_EMBEDDER_API_KEY", cfg.Embedder.ApiKey)
	cfg.Embedder.Model = getEnv("UPSERTER_EMBEDDER_MODEL", cfg.Embedder.Model)
	cfg.Embedder.BaseURL = getEnv("UPSERTER_EMBEDDER_BASE_URL", cfg.Embedder.BaseURL)
	cfg.Embedder.Dimension = getEnvInt("UPSERTER_EMBEDDER_DIMENSION", cfg.Embedder.Dimension)

	cfg.Server.Address = getEnv("UPSERTER_SERVER_ADDRESS", cfg.Server.Address)

	cfg.Engine.TopK = getEnvInt("UPSERTER_ENGINE_TOP_K", cfg.Engine.TopK)
	cfg.Engine.TagLock = getEnvBool("UPSERTER_ENGINE_TAG_LOCK", cfg.Engine.TagLock)

	cfg.Log.Level = getEnv("UPSERTER_LOG_LEVEL", cfg.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
