package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// ErrCredentialUnavailable indicates the issuer failed or returned an empty
// credential. Fatal to the connect attempt that triggered it; a later
// trigger may retry.
var ErrCredentialUnavailable = errors.New("credential unavailable")

// Cache provides get-or-issue access to one credential, backed by the
// external TTL store under a fixed key name.
type Cache struct {
	store  Store
	issuer Issuer
	key    string
	logger *slog.Logger

	// Coalesces concurrent issuance so a burst of misses (or a miss racing
	// a forced refresh) produces exactly one issuer call.
	group singleflight.Group
}

// NewCache creates a credential cache over the given store key.
func NewCache(store Store, issuer Issuer, key string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		store:  store,
		issuer: issuer,
		key:    key,
		logger: logger.With("credential", key),
	}
}

// Get returns the cached credential value, issuing a new one on a miss.
func (c *Cache) Get(ctx context.Context) (string, error) {
	val, err := c.store.Get(ctx, c.key)
	if err != nil {
		return "", fmt.Errorf("credential store get: %w", err)
	}
	if val != "" {
		return val, nil
	}

	c.logger.Info("credential missing from store, requesting issuance")
	return c.issueAndStore(ctx)
}

// ForceRefresh unconditionally issues a new credential and replaces the
// stored value. Used when the upstream provider rejects the current one.
func (c *Cache) ForceRefresh(ctx context.Context) (string, error) {
	c.logger.Warn("forcing credential refresh")
	return c.issueAndStore(ctx)
}

func (c *Cache) issueAndStore(ctx context.Context) (string, error) {
	val, err, _ := c.group.Do(c.key, func() (any, error) {
		cred, err := c.issuer.Issue(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
		}
		if cred.Value == "" {
			return "", fmt.Errorf("%w: issuer returned empty value", ErrCredentialUnavailable)
		}

		// Overwrites the shared store entry, visible to any other process
		// using the same store.
		if err := c.store.Set(ctx, c.key, cred.Value, cred.TTL); err != nil {
			c.logger.Error("failed to store issued credential", "error", err)
		} else {
			c.logger.Info("stored new credential", "ttl", cred.TTL)
		}

		return cred.Value, nil
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}
