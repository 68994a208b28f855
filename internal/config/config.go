// Package config loads and validates relay configuration from YAML files.
//
// Config files support ${VAR} environment variable expansion, so secrets
// like the KIS app key can live outside the file.
package config

import "time"

// RelayConfig is the top-level configuration for the relay binary.
type RelayConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	KIS      KISConfig      `yaml:"kis"`
	Redis    RedisConfig    `yaml:"redis"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this relay instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// KISConfig holds the upstream provider endpoints and credentials.
type KISConfig struct {
	RestURL   string        `yaml:"rest_url"`   // Base URL for the oauth2 credential endpoints
	WSURL     string        `yaml:"ws_url"`     // Real-time quote websocket URL
	AppKey    string        `yaml:"app_key"`    // Application key (credential issuance)
	AppSecret string        `yaml:"app_secret"` // Application secret (credential issuance)
	Timeout   time.Duration `yaml:"timeout"`    // HTTP timeout for credential issuance
}

// RedisConfig holds the external credential store settings.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	ApprovalKey string        `yaml:"approval_key_name"` // Store key for the websocket approval key
	TokenKey    string        `yaml:"token_key_name"`    // Store key for the REST access token
	ApprovalTTL time.Duration `yaml:"approval_ttl"`      // Lifetime of a stored approval key
}

// UpstreamConfig tunes the single upstream websocket connection.
type UpstreamConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"` // Max silence before the connection is considered stale
	BufferSize       int           `yaml:"buffer_size"`  // Inbound message channel capacity
}

// GatewayConfig tunes the client-facing websocket endpoint.
type GatewayConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	Path         string        `yaml:"path"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SendBuffer   int           `yaml:"send_buffer"` // Per-session outbound queue capacity
}

// HealthConfig configures the operational health endpoint.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
