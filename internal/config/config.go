package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "NOTEPAD"
	defaultHTTPHost       = "0.0.0.0"
	defaultHTTPPort       = 4000
	defaultBasePath       = "/api"
	defaultStoreDriver    = StoreDriverFile
	defaultStoreFilePath  = "notes.json"
	defaultDatabasePath   = "./data.sqlite"
	defaultRedisAddress   = "localhost:6379"
	defaultRedisKeyPrefix = "notepad:"
	defaultLogLevel       = "info"
)

// Store drivers selectable through store.driver.
const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPHost       string
	HTTPPort       int
	BasePath       string
	StoreDriver    string
	StoreFilePath  string
	DatabasePath   string
	RedisAddress   string
	RedisDB        int
	RedisKeyPrefix string
	LogLevel       string
}

// HTTPAddress joins host and port into a listen address.
func (c AppConfig) HTTPAddress() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
// PORT and DB_FILE are honoured without the prefix for compatibility with
// existing deployments.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	_ = configViper.BindEnv("http.port", envPrefix+"_HTTP_PORT", "PORT")
	_ = configViper.BindEnv("database.path", envPrefix+"_DATABASE_PATH", "DB_FILE")

	configViper.SetDefault("http.host", defaultHTTPHost)
	configViper.SetDefault("http.port", defaultHTTPPort)
	configViper.SetDefault("http.base_path", defaultBasePath)
	configViper.SetDefault("store.driver", defaultStoreDriver)
	configViper.SetDefault("store.file_path", defaultStoreFilePath)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("redis.key_prefix", defaultRedisKeyPrefix)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPHost:       configViper.GetString("http.host"),
		HTTPPort:       configViper.GetInt("http.port"),
		BasePath:       normalizeBasePath(configViper.GetString("http.base_path")),
		StoreDriver:    strings.ToLower(strings.TrimSpace(configViper.GetString("store.driver"))),
		StoreFilePath:  configViper.GetString("store.file_path"),
		DatabasePath:   configViper.GetString("database.path"),
		RedisAddress:   configViper.GetString("redis.address"),
		RedisDB:        configViper.GetInt("redis.db"),
		RedisKeyPrefix: configViper.GetString("redis.key_prefix"),
		LogLevel:       configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	switch c.StoreDriver {
	case StoreDriverFile:
		if strings.TrimSpace(c.StoreFilePath) == "" {
			return fmt.Errorf("store.file_path is required for the file driver")
		}
	case StoreDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case StoreDriverRedis:
		if strings.TrimSpace(c.RedisAddress) == "" {
			return fmt.Errorf("redis.address is required for the redis driver")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("redis.db must not be negative")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of file, sqlite, redis", c.StoreDriver)
	}
	return nil
}

// normalizeBasePath yields "" or a path with one leading and no trailing slash.
func normalizeBasePath(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}
