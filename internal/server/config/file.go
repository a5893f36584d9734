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

// FileConfig is an intermediate DTO used only for reading config files.
// Empty fields leave the runtime Config untouched; AutoReply is a pointer so
// a file can switch it off.
type FileConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	AutoReply                   *bool          `json:"auto_reply" yaml:"auto_reply"`
	AutoReplyDelay              timex.Duration `json:"auto_reply_delay" yaml:"auto_reply_delay"`
	DeliveryDelay               timex.Duration `json:"delivery_delay" yaml:"delivery_delay"`
	LogBackend                  string         `json:"log_backend" yaml:"log_backend"`
	LogLevel                    string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays Config with the file given by -c or -config.
// YAML is used for .yaml/.yml, JSON otherwise. Panics on read or unmarshal
// errors.
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

	if fc.EndpointAddrGRPC != "" {
		cfg.EndpointAddrGRPC = fc.EndpointAddrGRPC
	}
	if fc.SecretKey != "" {
		cfg.SecretKey = fc.SecretKey
	}
	if fc.AccessTokenValidityDuration.Duration > 0 {
		cfg.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.AutoReply != nil {
		cfg.AutoReply = *fc.AutoReply
	}
	if fc.AutoReplyDelay.Duration > 0 {
		cfg.AutoReplyDelay = fc.AutoReplyDelay.Duration
	}
	if fc.DeliveryDelay.Duration > 0 {
		cfg.DeliveryDelay = fc.DeliveryDelay.Duration
	}
	if fc.LogBackend != "" {
		cfg.LogBackend = fc.LogBackend
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}
