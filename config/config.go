package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Listen   string       `mapstructure:"listen"`
	BaseURL  string       `mapstructure:"base_url"`
	Database string       `mapstructure:"database"`
	Log      LogConfig    `mapstructure:"log"`
	Fetch    FetchConfig  `mapstructure:"fetch"`
	Proxy    ProxyConfig  `mapstructure:"proxy"`
	Oracle   OracleConfig `mapstructure:"oracle"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type ProxyConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type OracleConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

const envPrefix = "WEB2RSS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":5000")
	v.SetDefault("base_url", "http://127.0.0.1:5000")
	v.SetDefault("database", "web2rss.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; web2rss/1.0)")
	v.SetDefault("proxy.timeout", 20*time.Second)
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.base_url", "https://api.mistral.ai/v1")
	v.SetDefault("oracle.model", "mistral-large-latest")
	v.SetDefault("oracle.timeout", 60*time.Second)
}

// Load reads defaults, then the optional config file, then the environment.
// Variables use the WEB2RSS_ prefix (WEB2RSS_FETCH_TIMEOUT=5s); the
// deployment names DATABASE_URL, MISTRAL_API_KEY and SERVER_NAME are
// honoured as well.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("database", envPrefix+"_DATABASE", "DATABASE_URL"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("oracle.api_key", envPrefix+"_ORACLE_API_KEY", "MISTRAL_API_KEY"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("base_url", envPrefix+"_BASE_URL", "SERVER_NAME"); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)
	return cfg, nil
}

// SERVER_NAME carries a bare host, so a scheme is added when missing.
func normalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	if u == "" {
		return u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return u
}
