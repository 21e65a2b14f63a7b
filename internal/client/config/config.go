package config

import "time"

// Config holds runtime settings for the academy CLI.
type Config struct {
	ServerBaseURL        string        `env:"SERVER_BASE_URL"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT"`
	SessionCheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL"`
	VerifyOnBootstrap    bool          `env:"VERIFY_ON_BOOTSTRAP"`
	StoragePath          string        `env:"STORAGE_PATH"`
	UseMock              bool          `env:"USE_MOCK"`
	LogLevel             string        `env:"LOG_LEVEL"`
	LogFormat            string        `env:"LOG_FORMAT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000/api"
	c.RequestTimeout = 10 * time.Second
	c.SessionCheckInterval = time.Minute
	c.VerifyOnBootstrap = true
	c.StoragePath = "academy.db"
	c.UseMock = false
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg, nil)
	parseFlags(cfg)
	return cfg
}
