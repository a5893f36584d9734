// Package config loads runtime configuration for the dialer client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and DIALER_* environment
//     variables.
//  3. Optional config file selected via -c or -config. Files ending in .yaml
//     or .yml are YAML, anything else is JSON.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      online status check interval (seconds)
//	-t string   access token
//	-n string   own number override
//	-d string   cache database DSN
//	-m string   debug listen address
//	-l string   log level
//
// # Environment
//
//	DIALER_SERVER_ADDR, DIALER_ACCESS_TOKEN, DIALER_OWN_NUMBER,
//	DIALER_CACHE_DSN, DIALER_DEBUG_ADDR, DIALER_LOG_BACKEND,
//	DIALER_LOG_LEVEL, DIALER_SEND_TIMEOUT, DIALER_TYPING_WINDOW,
//	DIALER_PRESENCE_POLL_INTERVAL, DIALER_HISTORY_LIMIT
//
// # File schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	server_endpoint_addr: 127.0.0.1:50051
//	online_check_interval: 3s
//	typing_window: 2s
//	presence_poll_interval: 15s
//	log_backend: zerolog
package config
