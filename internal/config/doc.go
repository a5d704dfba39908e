// Package config loads the client's runtime configuration.
//
// # Resolution order
//
//  1. Built-in defaults (Default).
//  2. The TOML file at the given path, or ~/.config/olilab/config.toml.
//     A missing file is not an error.
//  3. OLILAB_* environment variables. LoadDotenv can seed these from a .env
//     file before Load runs; variables already present in the process
//     environment are never overwritten.
//
// # TOML format
//
//	api_url = ""               # explicit backend base URL, wins over served_from
//	served_from = ""           # host the client was served from
//	request_timeout = "0s"     # 0 disables the client timeout
//	refresh_interval = "0s"    # 0 disables periodic reloads
//	session_path = ""          # default: $XDG_RUNTIME_DIR/olilab/session.json
//	prefs_path = ""            # default: ~/.config/olilab/prefs.toml
//	log_file = "~/.local/state/olilab/olilab.log"
//	log_level = "info"
//	notify_webhook = ""        # empty: notifications are only logged
//	notify_rate = 2.0          # outbound notifications per second
//	report_endpoint = ""       # empty: report generation is unavailable
//
// Durations accept Go syntax ("1m30s") or a bare number of seconds. Paths
// support tilde expansion and are made absolute.
//
// # Errors
//
// Load fails on unreadable files, invalid TOML, malformed or negative
// durations, and a negative notify_rate. Every parse failure mentions
// "parse config".
package config
