package config

import (
	"github.com/caarlos0/env/v10"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "BRIGHTROOT_"

// parseEnv overlays cfg with BRIGHTROOT_* variables. Unset variables leave
// fields untouched. environ replaces the process environment when non-nil.
func parseEnv(cfg *Config, environ map[string]string) {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		panic(err)
	}
}
