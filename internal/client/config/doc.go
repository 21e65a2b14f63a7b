// Package config loads runtime configuration for the academy CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment variables prefixed with BRIGHTROOT_.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the auth backend
//	-t int      request timeout (seconds)
//	-i int      session check interval (seconds)
//	-s string   path of the local session database
//	-mock       use the built-in mock backend
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8000/api",
//	  "request_timeout": "10s",
//	  "session_check_interval": "1m",
//	  "verify_on_bootstrap": true,
//	  "storage_path": "academy.db",
//	  "use_mock": false,
//	  "log_level": "info",
//	  "log_format": "text"
//	}
//
// # Environment
//
//	BRIGHTROOT_SERVER_BASE_URL, BRIGHTROOT_REQUEST_TIMEOUT ("10s"),
//	BRIGHTROOT_SESSION_CHECK_INTERVAL, BRIGHTROOT_VERIFY_ON_BOOTSTRAP,
//	BRIGHTROOT_STORAGE_PATH, BRIGHTROOT_USE_MOCK, BRIGHTROOT_LOG_LEVEL,
//	BRIGHTROOT_LOG_FORMAT
//
// Loading panics on an unreadable JSON file, a malformed environment value
// or a bad flag; the CLI cannot start with a half-applied configuration.
package config
