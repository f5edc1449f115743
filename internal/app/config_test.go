package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:   defaultAddr,
		APIURL: "https://larek.example/api",
		Session: SessionConfig{
			JournalQueue: 64,
			MaxBodySize:  1024,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"ok", func(*Config) {}, ""},
		{"catalog from file", func(c *Config) { c.CatalogFile = "catalog.json" }, ""},
		{"no api url", func(c *Config) { c.APIURL = "" }, "api url is required"},
		{"zero queue", func(c *Config) { c.Session.JournalQueue = 0 }, "journal queue"},
		{"negative body", func(c *Config) { c.Session.MaxBodySize = -1 }, "max body size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://larek@db/larek")

	cfg := validConfig()
	cfg.applyPlatformDefaults()

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, "postgres://larek@db/larek", cfg.DatabaseURL)
}

func TestConfig_PlatformDefaults_ExplicitWins(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://platform/db")

	cfg := validConfig()
	cfg.Addr = "127.0.0.1:8000"
	cfg.DatabaseURL = "postgres://explicit/db"
	cfg.applyPlatformDefaults()

	assert.Equal(t, "127.0.0.1:8000", cfg.Addr)
	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
}
