package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var configEnvVars = []string{
	"HTTP_ADDR", "PORT", "LOG_LEVEL", "LOG_FORMAT", "SEARCH_TIMEOUT", "USER_AGENT", "PAGE_SIZE",
	"DEFAULT_ADAPTER", "FALLBACK_ADAPTER", "APIBAY_ENDPOINT", "MAGNET_SEARCH_ENDPOINT",
	"NYAA_ENDPOINT", "SUKEBEI_ENDPOINT", "SAMPLE_DATA_FILE", "REMOTE_HEADERS", "TRACKERS",
	"ACCESS_PASSWORD", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"HISTORY_BACKEND", "HISTORY_FILE", "HISTORY_SQLITE_PATH", "HISTORY_LIMIT", "HISTORY_RESULTS_PER_ENTRY",
	"MONGO_URI", "MONGO_DATABASE", "POSTGRES_DSN", "REDIS_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":3001"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"SearchTimeout", cfg.SearchTimeout, 8 * time.Second},
		{"UserAgent", cfg.UserAgent, "seedmanage-search/1.0"},
		{"PageSize", cfg.PageSize, 10},
		{"DefaultAdapter", cfg.DefaultAdapter, "apibay"},
		{"FallbackAdapter", cfg.FallbackAdapter, "sample"},
		{"APIBayEndpoint", cfg.APIBayEndpoint, ""},
		{"AccessPassword", cfg.AccessPassword, ""},
		{"RateLimitRPS", cfg.RateLimitRPS, float64(50)},
		{"RateLimitBurst", cfg.RateLimitBurst, 100},
		{"HistoryBackend", cfg.HistoryBackend, "file"},
		{"HistoryFile", cfg.HistoryFile, "data/history.json"},
		{"HistoryLimit", cfg.HistoryLimit, 50},
		{"HistoryResultsPerItem", cfg.HistoryResultsPerItem, 20},
		{"MongoDatabase", cfg.MongoDatabase, "seedmanage"},
		{"TrackersLen", len(cfg.Trackers), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	setEnvs(t, map[string]string{
		"HTTP_ADDR":              ":9000",
		"LOG_LEVEL":              "DEBUG",
		"SEARCH_TIMEOUT":         "3s",
		"PAGE_SIZE":              "25",
		"DEFAULT_ADAPTER":        "Nyaa",
		"MAGNET_SEARCH_ENDPOINT": "http://mirror.example/q.php",
		"TRACKERS":               "udp://a:1, udp://b:2",
		"HISTORY_BACKEND":        "SQLite",
		"HISTORY_LIMIT":          "7",
	})

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected addr/level: %q %q", cfg.HTTPAddr, cfg.LogLevel)
	}
	if cfg.SearchTimeout != 3*time.Second || cfg.PageSize != 25 {
		t.Fatalf("unexpected timeout/page size: %v %d", cfg.SearchTimeout, cfg.PageSize)
	}
	if cfg.DefaultAdapter != "nyaa" || cfg.APIBayEndpoint != "http://mirror.example/q.php" {
		t.Fatalf("unexpected adapter config: %q %q", cfg.DefaultAdapter, cfg.APIBayEndpoint)
	}
	if !reflect.DeepEqual(cfg.Trackers, []string{"udp://a:1", "udp://b:2"}) {
		t.Fatalf("unexpected trackers: %#v", cfg.Trackers)
	}
	if cfg.HistoryBackend != "sqlite" || cfg.HistoryLimit != 7 {
		t.Fatalf("unexpected history config: %q %d", cfg.HistoryBackend, cfg.HistoryLimit)
	}
}

func TestLoadConfigPortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4100")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":4100" {
		t.Fatalf("expected :4100, got %q", cfg.HTTPAddr)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "http_addr: \":7000\"\nfallback_adapter: nyaa\nhistory_backend: none\npage_size: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HISTORY_BACKEND", "redis")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":7000" || cfg.FallbackAdapter != "nyaa" {
		t.Fatalf("file values not applied: %#v", cfg)
	}
	if cfg.HistoryBackend != "redis" {
		t.Fatalf("env should override file, got %q", cfg.HistoryBackend)
	}
	if cfg.PageSize != 10 {
		t.Fatalf("invalid page size should fall back to 10, got %d", cfg.PageSize)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{
		DefaultAdapter:  "sample",
		FallbackAdapter: " Sample ",
		PageSize:        500,
		SearchTimeout:   -time.Second,
		RateLimitRPS:    -1,
	}
	cfg.Validate()
	if cfg.FallbackAdapter != "" {
		t.Fatalf("fallback equal to default should be cleared, got %q", cfg.FallbackAdapter)
	}
	if cfg.PageSize != 10 || cfg.SearchTimeout != 8*time.Second || cfg.RateLimitRPS != 50 {
		t.Fatalf("unexpected normalized config: %#v", cfg)
	}
}

func TestHeaders(t *testing.T) {
	cfg := Config{RemoteHeaders: "X-Api-Key=abc; Cookie=a=b;broken;=nope"}
	headers := cfg.Headers()
	if headers.Get("X-Api-Key") != "abc" {
		t.Fatalf("unexpected api key header: %q", headers.Get("X-Api-Key"))
	}
	if headers.Get("Cookie") != "a=b" {
		t.Fatalf("unexpected cookie header: %q", headers.Get("Cookie"))
	}
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %#v", headers)
	}
}
