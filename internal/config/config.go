package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type APIConfig struct {
	BaseURL     string
	Timeout     time.Duration
	TokenPath   string
	RefreshPath string
	MePath      string
}

type SessionConfig struct {
	Store            string
	Path             string
	KeyPrefix        string
	ExpirySkew       time.Duration
	PreflightRefresh bool
	IdentityRefresh  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type PanelConfig struct {
	PageSize      int
	FetchPageSize int
	MaxPages      int
	Workers       int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	Region    string
}

type StubConfig struct {
	Host             string
	Port             int
	AccessSecret     string
	RefreshSecret    string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AllowCORSOrigins []string
	SeedUsername     string
	SeedPassword     string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment string
	Logging     LoggingConfig
	API         APIConfig
	Session     SessionConfig
	Redis       RedisConfig
	Postgres    PostgresConfig
	Panel       PanelConfig
	Storage     StorageConfig
	Stub        StubConfig
}

// Load reads authorpanel.yaml (or the explicit file) and AUTHORPANEL_* env
// overrides. A missing config file is not an error.
func Load(file string) (*AppConfig, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("authorpanel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "authorpanel"))
		}
	}

	v.SetEnvPrefix("AUTHORPANEL")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Session.Store {
	case "file", "redis", "postgres", "memory":
	default:
		return fmt.Errorf("session.store %q: must be one of file, redis, postgres, memory", c.Session.Store)
	}
	if c.API.BaseURL == "" {
		return errors.New("api.baseurl is required")
	}
	if c.Panel.PageSize <= 0 || c.Panel.FetchPageSize <= 0 || c.Panel.MaxPages <= 0 || c.Panel.Workers <= 0 {
		return errors.New("panel sizes must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("logging.level", "info")

	v.SetDefault("api.baseurl", "https://atom-game.ir")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.tokenpath", "/api/token/")
	v.SetDefault("api.refreshpath", "/api/token/refresh/")
	v.SetDefault("api.mepath", "/api/users/users/me/")

	v.SetDefault("session.store", "file")
	v.SetDefault("session.path", defaultSessionPath())
	v.SetDefault("session.keyprefix", "authorpanel:")
	v.SetDefault("session.expiryskew", "30s")
	v.SetDefault("session.preflightrefresh", true)
	v.SetDefault("session.identityrefresh", "@every 10m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("postgres.maxopen", 4)
	v.SetDefault("postgres.maxidle", 1)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("panel.pagesize", 10)
	v.SetDefault("panel.fetchpagesize", 200)
	v.SetDefault("panel.maxpages", 10)
	v.SetDefault("panel.workers", 6)

	v.SetDefault("storage.bucket", "authorpanel-exports")
	v.SetDefault("storage.prefix", "snapshots")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("stub.host", "127.0.0.1")
	v.SetDefault("stub.port", 8000)
	v.SetDefault("stub.accesssecret", "dev-access-secret")
	v.SetDefault("stub.refreshsecret", "dev-refresh-secret")
	v.SetDefault("stub.accessttl", "5m")
	v.SetDefault("stub.refreshttl", "24h")
	v.SetDefault("stub.seedusername", "author")
	v.SetDefault("stub.seedpassword", "author-pass")
	v.SetDefault("stub.readtimeout", "10s")
	v.SetDefault("stub.writetimeout", "15s")
	v.SetDefault("stub.idletimeout", "60s")
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".authorpanel-session.json"
	}
	return filepath.Join(dir, "authorpanel", "session.json")
}
