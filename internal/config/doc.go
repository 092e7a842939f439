// Package config loads appdeck's configuration.
//
// # Resolution order
//
//  1. Built-in defaults (Default)
//  2. The TOML file at the given path, or ~/.config/appdeck/config.toml
//     when none is given. A missing file is not an error.
//  3. APPDECK_* environment variables, read with envconfig
//  4. Command-line flags, applied by cmd/appdeck after Load returns
//
// Empty or blank values in the file keep the default. Durations use Go
// syntax ("5s", "2m").
//
// # Fields
//
//	api_url          = "http://127.0.0.1:3006"   # APPDECK_API_URL
//	token            = ""                        # APPDECK_TOKEN
//	poll_interval    = "5s"                      # APPDECK_POLL_INTERVAL
//	poll_timeout     = "0s"                      # APPDECK_POLL_TIMEOUT, 0 = unbounded
//	max_attempts     = 0                         # APPDECK_MAX_ATTEMPTS, 0 = unbounded
//	refresh_interval = "10s"                     # APPDECK_REFRESH_INTERVAL
//	log_level        = "info"                    # APPDECK_LOG_LEVEL
//	log_file         = "~/.local/state/appdeck/appdeck.log"  # APPDECK_LOG_FILE
//
// poll_interval drives the per-operation completion loops; refresh_interval
// drives the background catalog refresh that keeps the console current.
//
// Only the APPDECK_ names are read; an unprefixed TOKEN or LOG_LEVEL in the
// environment is ignored.
//
// Negative poll_timeout or max_attempts values are rejected. Leading ~ in
// log_file is expanded to the user's home directory.
package config
