package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends for nutrition documents.
const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	StoreBackend     string
	FirestoreProject string

	SyncCooldown time.Duration

	USDAAPIKey       string
	USDABaseURL      string
	OpenFoodFactsURL string
	CatalogCacheTTL  time.Duration

	WorkerPollInterval time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                  getenv("ENV", "development"),
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowedOrigins:   splitList(getenv("CORS_ALLOWED_ORIGINS", "")),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		StoreBackend:         getenv("STORE_BACKEND", BackendPostgres),
		FirestoreProject:     getenv("FIRESTORE_PROJECT", ""),
		USDAAPIKey:           getenv("USDA_API_KEY", "DEMO_KEY"),
		USDABaseURL:          getenv("USDA_BASE_URL", ""),
		OpenFoodFactsURL:     getenv("OFF_BASE_URL", ""),
	}

	var err error
	if cfg.SyncCooldown, err = duration("SYNC_COOLDOWN", "5m"); err != nil {
		return Config{}, err
	}
	if cfg.CatalogCacheTTL, err = duration("CATALOG_CACHE_TTL", "10m"); err != nil {
		return Config{}, err
	}
	if cfg.WorkerPollInterval, err = duration("WORKER_POLL_INTERVAL", "800ms"); err != nil {
		return Config{}, err
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
	case BackendFirestore:
		if cfg.FirestoreProject == "" {
			return Config{}, fmt.Errorf("config: FIRESTORE_PROJECT is required when STORE_BACKEND=%s", BackendFirestore)
		}
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	return cfg, nil
}

// Client configures the nutrilog command.
type Client struct {
	ServerURL         string
	Home              string
	Token             string
	SyncCooldown      time.Duration
	AutoSyncDelay     time.Duration
	ConnectivityProbe time.Duration
}

func LoadClient() (Client, error) {
	_ = godotenv.Load()

	home := getenv("NUTRILOG_HOME", "")
	if home == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Client{}, fmt.Errorf("config: locate config dir: %w", err)
		}
		home = filepath.Join(dir, "nutrilog")
	}

	cfg := Client{
		ServerURL: strings.TrimRight(getenv("NUTRILOG_SERVER", "http://localhost:8080"), "/"),
		Home:      home,
		Token:     getenv("NUTRILOG_TOKEN", ""),
	}

	var err error
	if cfg.SyncCooldown, err = duration("SYNC_COOLDOWN", "5m"); err != nil {
		return Client{}, err
	}
	if cfg.AutoSyncDelay, err = duration("AUTO_SYNC_DELAY", "3s"); err != nil {
		return Client{}, err
	}
	if cfg.ConnectivityProbe, err = duration("CONNECTIVITY_PROBE", "15s"); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func duration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(key, def))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
