// Package config handles configuration for the development backend,
// including defaults, config file overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the development backend.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration: lifetime of issued tokens.
//   - AutoReply / AutoReplyDelay: echo every inbound text back from the recipient.
//   - DeliveryDelay: time between the sent and delivered status updates.
//   - TokenFor: when set, print a token for this number and exit.
type Config struct {
	EndpointAddrGRPC            string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	AutoReply                   bool
	AutoReplyDelay              time.Duration
	DeliveryDelay               time.Duration
	LogBackend                  string
	LogLevel                    string
	TokenFor                    string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.AutoReply = true
	c.AutoReplyDelay = 1500 * time.Millisecond
	c.DeliveryDelay = 500 * time.Millisecond
	c.LogBackend = "json"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
