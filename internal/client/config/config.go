package config

import "time"

// Config holds runtime settings for the dialer client.
//
// Durations are time.Duration values; file sources may spell them as
// strings ("3s") or integer nanoseconds.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	SendTimeout         time.Duration
	ReconnectMaxBackoff time.Duration

	// AccessToken and OwnNumber override what the cache remembers from the
	// previous login. OwnNumber also overrides the token's phone claim.
	AccessToken string
	OwnNumber   string

	CacheDSN     string
	HistoryLimit int

	TypingWindow         time.Duration
	PresencePollInterval time.Duration
	PresencePollRPS      float64
	PresencePollBurst    int

	// DebugAddr enables the /metrics and /healthz listener when set.
	DebugAddr  string
	LogBackend string
	LogLevel   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.SendTimeout = 10 * time.Second
	c.ReconnectMaxBackoff = 30 * time.Second
	c.CacheDSN = "dialer-cache/client.db"
	c.HistoryLimit = 50
	c.TypingWindow = 2 * time.Second
	c.PresencePollInterval = 15 * time.Second
	c.PresencePollRPS = 2
	c.PresencePollBurst = 4
	c.LogBackend = "text"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, a config file (if given) and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
