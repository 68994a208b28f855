package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL              = "https://openapi.koreainvestment.com:9443"
	DefaultWSURL                = "ws://ops.koreainvestment.com:21000/tryitout/H0STCNT0"
	DefaultKISTimeout           = 30 * time.Second
	DefaultRedisAddr            = "localhost:6379"
	DefaultApprovalKeyName      = "kisChartKey"
	DefaultTokenKeyName         = "kis_token"
	DefaultApprovalTTL          = 24 * time.Hour
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultUpstreamWriteTimeout = 5 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultPingTimeout          = 120 * time.Second
	DefaultUpstreamBufferSize   = 1024
	DefaultGatewayListenAddr    = ":8080"
	DefaultGatewayPath          = "/ws/stocks"
	DefaultGatewayWriteTimeout  = 5 * time.Second
	DefaultSendBuffer           = 256
	DefaultHealthPort           = 8081
	DefaultHealthPath           = "/health"
)

func (c *RelayConfig) applyDefaults() {
	// KIS defaults
	if c.KIS.RestURL == "" {
		c.KIS.RestURL = DefaultRestURL
	}
	if c.KIS.WSURL == "" {
		c.KIS.WSURL = DefaultWSURL
	}
	if c.KIS.Timeout == 0 {
		c.KIS.Timeout = DefaultKISTimeout
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.ApprovalKey == "" {
		c.Redis.ApprovalKey = DefaultApprovalKeyName
	}
	if c.Redis.TokenKey == "" {
		c.Redis.TokenKey = DefaultTokenKeyName
	}
	if c.Redis.ApprovalTTL == 0 {
		c.Redis.ApprovalTTL = DefaultApprovalTTL
	}

	// Upstream defaults
	if c.Upstream.HandshakeTimeout == 0 {
		c.Upstream.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Upstream.WriteTimeout == 0 {
		c.Upstream.WriteTimeout = DefaultUpstreamWriteTimeout
	}
	if c.Upstream.PingInterval == 0 {
		c.Upstream.PingInterval = DefaultPingInterval
	}
	if c.Upstream.PingTimeout == 0 {
		c.Upstream.PingTimeout = DefaultPingTimeout
	}
	if c.Upstream.BufferSize == 0 {
		c.Upstream.BufferSize = DefaultUpstreamBufferSize
	}

	// Gateway defaults
	if c.Gateway.ListenAddr == "" {
		c.Gateway.ListenAddr = DefaultGatewayListenAddr
	}
	if c.Gateway.Path == "" {
		c.Gateway.Path = DefaultGatewayPath
	}
	if c.Gateway.WriteTimeout == 0 {
		c.Gateway.WriteTimeout = DefaultGatewayWriteTimeout
	}
	if c.Gateway.SendBuffer == 0 {
		c.Gateway.SendBuffer = DefaultSendBuffer
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}
