package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/flagx"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for config file unmarshalling. Zero
// values leave the corresponding Config field untouched.
type FileConfig struct {
	ServerEndpointAddr   string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	OnlineCheckInterval  timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	SendTimeout          timex.Duration `json:"send_timeout" yaml:"send_timeout"`
	ReconnectMaxBackoff  timex.Duration `json:"reconnect_max_backoff" yaml:"reconnect_max_backoff"`
	AccessToken          string         `json:"access_token" yaml:"access_token"`
	OwnNumber            string         `json:"own_number" yaml:"own_number"`
	CacheDSN             string         `json:"cache_dsn" yaml:"cache_dsn"`
	HistoryLimit         int            `json:"history_limit" yaml:"history_limit"`
	TypingWindow         timex.Duration `json:"typing_window" yaml:"typing_window"`
	PresencePollInterval timex.Duration `json:"presence_poll_interval" yaml:"presence_poll_interval"`
	PresencePollRPS      float64        `json:"presence_poll_rps" yaml:"presence_poll_rps"`
	PresencePollBurst    int            `json:"presence_poll_burst" yaml:"presence_poll_burst"`
	DebugAddr            string         `json:"debug_addr" yaml:"debug_addr"`
	LogBackend           string         `json:"log_backend" yaml:"log_backend"`
	LogLevel             string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with the file named by -c or -config. The format is
// chosen by extension: .yaml and .yml are YAML, anything else JSON.
// Panics on read or unmarshal errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func (fc FileConfig) apply(cfg *Config) {
	setStr(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setStr(&cfg.AccessToken, fc.AccessToken)
	setStr(&cfg.OwnNumber, fc.OwnNumber)
	setStr(&cfg.CacheDSN, fc.CacheDSN)
	setStr(&cfg.DebugAddr, fc.DebugAddr)
	setStr(&cfg.LogBackend, fc.LogBackend)
	setStr(&cfg.LogLevel, fc.LogLevel)

	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.SendTimeout.Duration > 0 {
		cfg.SendTimeout = fc.SendTimeout.Duration
	}
	if fc.ReconnectMaxBackoff.Duration > 0 {
		cfg.ReconnectMaxBackoff = fc.ReconnectMaxBackoff.Duration
	}
	if fc.TypingWindow.Duration > 0 {
		cfg.TypingWindow = fc.TypingWindow.Duration
	}
	if fc.PresencePollInterval.Duration > 0 {
		cfg.PresencePollInterval = fc.PresencePollInterval.Duration
	}
	if fc.HistoryLimit > 0 {
		cfg.HistoryLimit = fc.HistoryLimit
	}
	if fc.PresencePollRPS > 0 {
		cfg.PresencePollRPS = fc.PresencePollRPS
	}
	if fc.PresencePollBurst > 0 {
		cfg.PresencePollBurst = fc.PresencePollBurst
	}
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
