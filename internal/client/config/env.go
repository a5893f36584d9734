package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is read from the working directory when present. Variables already
// set in the process environment win over the file.
const EnvFile = ".env"

// parseEnv loads EnvFile and overlays DIALER_* variables onto cfg.
// Panics on a malformed .env file or an unparseable value.
func parseEnv(cfg *Config) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
	applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("DIALER_SERVER_ADDR", &cfg.ServerEndpointAddr)
	str("DIALER_ACCESS_TOKEN", &cfg.AccessToken)
	str("DIALER_OWN_NUMBER", &cfg.OwnNumber)
	str("DIALER_CACHE_DSN", &cfg.CacheDSN)
	str("DIALER_DEBUG_ADDR", &cfg.DebugAddr)
	str("DIALER_LOG_BACKEND", &cfg.LogBackend)
	str("DIALER_LOG_LEVEL", &cfg.LogLevel)
	dur("DIALER_SEND_TIMEOUT", &cfg.SendTimeout)
	dur("DIALER_TYPING_WINDOW", &cfg.TypingWindow)
	dur("DIALER_PRESENCE_POLL_INTERVAL", &cfg.PresencePollInterval)

	if v, ok := lookup("DIALER_HISTORY_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		cfg.HistoryLimit = n
	}
}
