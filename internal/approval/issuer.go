package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// KIS oauth2 endpoints and request fields.
const (
	approvalEndpoint = "/oauth2/Approval"
	tokenEndpoint    = "/oauth2/tokenP"

	grantTypeClientCredentials = "client_credentials"

	// The websocket approval key carries no expiry in the response; the
	// provider rotates it daily, so it is cached for 24 hours unless
	// configured otherwise.
	defaultApprovalKeyTTL = 24 * time.Hour
)

// Credential is one issued credential value with its lifetime. Credentials
// are never mutated in place; refresh replaces the whole record.
type Credential struct {
	Value string
	TTL   time.Duration
}

// Issuer exchanges the application key/secret for a fresh credential.
type Issuer interface {
	Issue(ctx context.Context) (Credential, error)
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) (Credential, error)

// Issue calls f.
func (f IssuerFunc) Issue(ctx context.Context) (Credential, error) { return f(ctx) }

// Client issues KIS credentials over the provider's oauth2 HTTP endpoints.
type Client struct {
	baseURL     string
	appKey      string
	appSecret   string
	approvalTTL time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithApprovalTTL overrides the cache lifetime of issued approval keys.
func WithApprovalTTL(d time.Duration) ClientOption {
	return func(c *Client) {
		c.approvalTTL = d
	}
}

// NewClient creates an issuer client for the KIS oauth2 endpoints.
func NewClient(baseURL, appKey, appSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		appKey:      appKey,
		appSecret:   appSecret,
		approvalTTL: defaultApprovalKeyTTL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ApprovalKeyIssuer returns the issuer for the websocket approval key.
func (c *Client) ApprovalKeyIssuer() Issuer {
	return IssuerFunc(c.issueApprovalKey)
}

// AccessTokenIssuer returns the issuer for the REST access token.
func (c *Client) AccessTokenIssuer() Issuer {
	return IssuerFunc(c.issueAccessToken)
}

// issueApprovalKey requests a new websocket approval key.
// Note: this endpoint names the secret field "secretkey", the token endpoint
// names it "appsecret". Both spellings are the provider's.
func (c *Client) issueApprovalKey(ctx context.Context) (Credential, error) {
	body := map[string]string{
		"grant_type": grantTypeClientCredentials,
		"appkey":     c.appKey,
		"secretkey":  c.appSecret,
	}

	var resp struct {
		ApprovalKey string `json:"approval_key"`
	}
	if err := c.post(ctx, approvalEndpoint, body, &resp); err != nil {
		return Credential{}, err
	}
	if resp.ApprovalKey == "" {
		return Credential{}, fmt.Errorf("approval response carried no approval_key")
	}

	c.logger.Info("issued new websocket approval key")
	return Credential{Value: resp.ApprovalKey, TTL: c.approvalTTL}, nil
}

// issueAccessToken requests a new REST access token; its TTL comes from the
// response's expires_in seconds.
func (c *Client) issueAccessToken(ctx context.Context) (Credential, error) {
	body := map[string]string{
		"grant_type": grantTypeClientCredentials,
		"appkey":     c.appKey,
		"appsecret":  c.appSecret,
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.post(ctx, tokenEndpoint, body, &resp); err != nil {
		return Credential{}, err
	}
	if resp.AccessToken == "" {
		return Credential{}, fmt.Errorf("token response carried no access_token")
	}
	// A zero TTL would be stored without expiry, turning a short-lived
	// token into a permanent one.
	if resp.ExpiresIn <= 0 {
		return Credential{}, fmt.Errorf("token response carried non-positive expires_in %d", resp.ExpiresIn)
	}

	c.logger.Info("issued new access token", "expires_in", resp.ExpiresIn)
	return Credential{
		Value: resp.AccessToken,
		TTL:   time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// post sends a JSON request and decodes the JSON response.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("kis oauth2 error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
