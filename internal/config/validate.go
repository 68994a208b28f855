package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.KIS.AppKey == "" {
		return errors.New("kis.app_key is required")
	}
	if c.KIS.AppSecret == "" {
		return errors.New("kis.app_secret is required")
	}
	if !strings.HasPrefix(c.KIS.WSURL, "ws://") && !strings.HasPrefix(c.KIS.WSURL, "wss://") {
		return fmt.Errorf("kis.ws_url must be a ws:// or wss:// URL, got %q", c.KIS.WSURL)
	}

	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Redis.ApprovalTTL <= 0 {
		return errors.New("redis.approval_ttl must be positive")
	}

	if c.Upstream.BufferSize < 1 {
		return errors.New("upstream.buffer_size must be >= 1")
	}

	if c.Gateway.SendBuffer < 1 {
		return errors.New("gateway.send_buffer must be >= 1")
	}
	if !strings.HasPrefix(c.Gateway.Path, "/") {
		return fmt.Errorf("gateway.path must start with /, got %q", c.Gateway.Path)
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}
