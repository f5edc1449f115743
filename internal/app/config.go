package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (LAREK_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	APIURL      string `default:"https://larek-api.nomoreparties.co/api/weblarek" usage:"Storefront API base URL" env:"API_URL" flag:"api-url"`
	CDNURL      string `default:"https://larek-api.nomoreparties.co/content/weblarek" usage:"Base URL for lot images" env:"CDN_URL" flag:"cdn-url"`
	CatalogFile string `usage:"Load the catalog from a JSON (or .json.gz) file instead of the API" env:"CATALOG_FILE" flag:"catalog-file"`
	DatabaseURL string `usage:"PostgreSQL URL for the order journal (LAREK_DATABASE_URL or DATABASE_URL); empty disables it" env:"DATABASE_URL" flag:"database-url"`
	Session     SessionConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// SessionConfig tunes the storefront session.
type SessionConfig struct {
	MaxEmitDepth  int           `default:"32" usage:"Max nested event emissions before an emit is dropped" flag:"max-emit-depth"`
	SubmitTimeout time.Duration `default:"15s" usage:"Order submission timeout" flag:"submit-timeout"`
	CatalogRetry  time.Duration `default:"5s" usage:"Delay between catalog load attempts" flag:"catalog-retry"`
	JournalQueue  int           `default:"64" usage:"Pending order journal entries" flag:"journal-queue"`
	MaxBodySize   int64         `default:"65536" usage:"Max intent body size in bytes" flag:"max-body-size"`
}

// RateLimitConfig controls the per-client sliding window limiter on intents.
type RateLimitConfig struct {
	Max    int           `default:"120" usage:"Max intents per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LAREK",
		Files:     []string{"config.yaml", "/etc/larek/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return errors.New("api url is required: set LAREK_API_URL")
	}
	if c.Session.JournalQueue <= 0 {
		return errors.Errorf("journal queue must be positive, got %d", c.Session.JournalQueue)
	}
	if c.Session.MaxBodySize <= 0 {
		return errors.Errorf("max body size must be positive, got %d", c.Session.MaxBodySize)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's LAREK_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
