package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// Config is the application configuration, resolved once at startup
type Config struct {
	Port   string
	DBPath string

	StoreBackend string
	StoreDir     string // file backend
	StoreTable   string // dynamodb backend

	RouteURL    string
	GeoURL      string
	OCMURL      string
	OCMKey      string
	CallTimeout time.Duration
	CallRate    float64 // Outbound calls per second, 0 for no limit
	InsecureTLS bool

	ExactDeviation bool

	LogLevel  string
	LogFormat string // json or console

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// New returns a viper instance with the defaults and the EVSIM_ environment
// overrides, e.g. EVSIM_SERVER_PORT for server.port
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", ":8080")
	v.SetDefault("database.path", "./data/data.sqlite")

	v.SetDefault("store.backend", StoreFile)
	v.SetDefault("store.dir", "./data/simulations")
	v.SetDefault("store.table", "simulations")

	v.SetDefault("enrichment.route_url", "https://wxs.ign.fr/calcul/geoportail/itineraire/rest/1.0.0/route")
	v.SetDefault("enrichment.geo_url", "https://geo.api.gouv.fr/communes")
	v.SetDefault("enrichment.ocm_url", "https://api.openchargemap.io/v3/poi")
	v.SetDefault("enrichment.ocm_key", "")
	v.SetDefault("enrichment.timeout", "10s")
	v.SetDefault("enrichment.rate", 5)
	v.SetDefault("enrichment.insecure_tls", false)

	v.SetDefault("deviation.exact", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", "1m")

	v.SetEnvPrefix("EVSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads config.yaml from ./data or the working directory when present,
// applies the environment and validates the result
func Load() (*Config, error) {
	v := New()
	v.SetConfigName("config")
	v.AddConfigPath("./data/")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper resolves and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:   v.GetString("server.port"),
		DBPath: v.GetString("database.path"),

		StoreBackend: strings.ToLower(v.GetString("store.backend")),
		StoreDir:     v.GetString("store.dir"),
		StoreTable:   v.GetString("store.table"),

		RouteURL:    v.GetString("enrichment.route_url"),
		GeoURL:      v.GetString("enrichment.geo_url"),
		OCMURL:      v.GetString("enrichment.ocm_url"),
		OCMKey:      v.GetString("enrichment.ocm_key"),
		CallTimeout: v.GetDuration("enrichment.timeout"),
		CallRate:    v.GetFloat64("enrichment.rate"),
		InsecureTLS: v.GetBool("enrichment.insecure_tls"),

		ExactDeviation: v.GetBool("deviation.exact"),

		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),

		RateLimitRequests: v.GetInt("ratelimit.requests"),
		RateLimitWindow:   v.GetDuration("ratelimit.window"),
	}

	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	switch cfg.StoreBackend {
	case StoreFile, StoreSQLite, StoreDynamoDB:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.CallTimeout < 0 {
		return nil, fmt.Errorf("enrichment.timeout must not be negative")
	}
	if cfg.CallRate < 0 {
		return nil, fmt.Errorf("enrichment.rate must not be negative")
	}

	return cfg, nil
}
