package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultHTTPAddr       = ":3001"
	defaultSearchTimeout  = 8 * time.Second
	defaultUserAgent      = "seedmanage-search/1.0"
	defaultPageSize       = 10
	maxPageSize           = 100
	defaultAdapterID      = "apibay"
	defaultFallbackID     = "sample"
	defaultRateLimitRPS   = 50
	defaultRateLimitBurst = 100
	defaultHistoryLimit   = 50
	defaultHistoryResults = 20
	defaultMongoDatabase  = "seedmanage"
)

type Config struct {
	HTTPAddr      string        `mapstructure:"http_addr"`
	Port          string        `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	PageSize      int           `mapstructure:"page_size"`

	DefaultAdapter  string   `mapstructure:"default_adapter"`
	FallbackAdapter string   `mapstructure:"fallback_adapter"`
	APIBayEndpoint  string   `mapstructure:"apibay_endpoint"`
	NyaaEndpoint    string   `mapstructure:"nyaa_endpoint"`
	SukebeiEndpoint string   `mapstructure:"sukebei_endpoint"`
	SampleDataFile  string   `mapstructure:"sample_data_file"`
	RemoteHeaders   string   `mapstructure:"remote_headers"`
	Trackers        []string `mapstructure:"trackers"`

	AccessPassword string  `mapstructure:"access_password"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	HistoryBackend        string `mapstructure:"history_backend"`
	HistoryFile           string `mapstructure:"history_file"`
	HistorySQLitePath     string `mapstructure:"history_sqlite_path"`
	HistoryLimit          int    `mapstructure:"history_limit"`
	HistoryResultsPerItem int    `mapstructure:"history_results_per_entry"`
	MongoURI              string `mapstructure:"mongo_uri"`
	MongoDatabase         string `mapstructure:"mongo_database"`
	PostgresDSN           string `mapstructure:"postgres_dsn"`
	RedisURL              string `mapstructure:"redis_url"`
}

// LoadConfig reads defaults, then the optional YAML file at path, then the
// environment. A missing explicit file is an error; an empty path skips the
// file entirely.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path = strings.TrimSpace(path); path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config file not found: %s", path)
			}
			return Config{}, err
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("apibay_endpoint", "APIBAY_ENDPOINT", "MAGNET_SEARCH_ENDPOINT")
	_ = v.BindEnv("port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Validate()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", "")
	v.SetDefault("port", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("search_timeout", defaultSearchTimeout)
	v.SetDefault("user_agent", defaultUserAgent)
	v.SetDefault("page_size", defaultPageSize)
	v.SetDefault("default_adapter", defaultAdapterID)
	v.SetDefault("fallback_adapter", defaultFallbackID)
	v.SetDefault("apibay_endpoint", "")
	v.SetDefault("nyaa_endpoint", "")
	v.SetDefault("sukebei_endpoint", "")
	v.SetDefault("sample_data_file", "")
	v.SetDefault("remote_headers", "")
	v.SetDefault("trackers", []string{})
	v.SetDefault("access_password", "")
	v.SetDefault("rate_limit_rps", defaultRateLimitRPS)
	v.SetDefault("rate_limit_burst", defaultRateLimitBurst)
	v.SetDefault("history_backend", "file")
	v.SetDefault("history_file", "data/history.json")
	v.SetDefault("history_sqlite_path", "data/history.db")
	v.SetDefault("history_limit", defaultHistoryLimit)
	v.SetDefault("history_results_per_entry", defaultHistoryResults)
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", defaultMongoDatabase)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("redis_url", "")
}

// Validate replaces empty or out-of-range values with their defaults.
func (c *Config) Validate() {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	if c.HTTPAddr == "" {
		c.HTTPAddr = defaultHTTPAddr
		if port := strings.TrimSpace(c.Port); port != "" {
			c.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
		}
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = defaultSearchTimeout
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		c.PageSize = defaultPageSize
	}
	c.DefaultAdapter = strings.ToLower(strings.TrimSpace(c.DefaultAdapter))
	if c.DefaultAdapter == "" {
		c.DefaultAdapter = defaultAdapterID
	}
	c.FallbackAdapter = strings.ToLower(strings.TrimSpace(c.FallbackAdapter))
	if c.FallbackAdapter == c.DefaultAdapter {
		c.FallbackAdapter = ""
	}
	c.Trackers = cleanList(c.Trackers)
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = defaultRateLimitRPS
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaultRateLimitBurst
	}
	c.HistoryBackend = strings.ToLower(strings.TrimSpace(c.HistoryBackend))
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.HistoryResultsPerItem <= 0 {
		c.HistoryResultsPerItem = defaultHistoryResults
	}
	if strings.TrimSpace(c.MongoDatabase) == "" {
		c.MongoDatabase = defaultMongoDatabase
	}
}

// Headers parses RemoteHeaders ("Name=value;Other=value") into a header set.
// Malformed pairs are skipped.
func (c Config) Headers() http.Header {
	headers := make(http.Header)
	for _, pair := range strings.Split(c.RemoteHeaders, ";") {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		headers.Add(name, strings.TrimSpace(value))
	}
	return headers
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
