package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Provider is the identity provider boundary used by the auth middleware,
// the admin route and the CLI
type Provider interface {
	VerifySession(ctx context.Context, token string) (*Session, error)
	ListUsers(ctx context.Context, params ListUsersParams) ([]User, error)
}

// SessionCache stores encoded sessions for a short time
type SessionCache interface {
	GetSession(ctx context.Context, key string) ([]byte, bool, error)
	SetSession(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client talks to the identity provider's backend API with the secret key
type Client struct {
	baseURL           string
	secretKey         string
	introspectionPath string
	usersPath         string
	roleClaim         string
	httpClient        *http.Client

	sessions   SessionCache
	sessionTTL time.Duration
	logger     *errors.Logger
}

var _ Provider = (*Client)(nil)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithSessionCache caches verified sessions for ttl
func WithSessionCache(cache SessionCache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl > 0 {
			c.sessions = cache
			c.sessionTTL = ttl
		}
	}
}

// WithHTTPClient replaces the default instrumented HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client from the auth config
func NewClient(cfg config.AuthConfig, logger *errors.Logger, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:           strings.TrimSuffix(cfg.ProviderURL, "/"),
		secretKey:         cfg.SecretKey,
		introspectionPath: cfg.IntrospectionPath,
		usersPath:         cfg.UsersPath,
		roleClaim:         cfg.RoleClaim,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// introspectionResponse is the RFC 7662 reply; extra members are claims
type introspectionResponse map[string]any

// VerifySession introspects the token. An inactive token yields an
// unauthenticated error wrapping ErrSessionInactive.
func (c *Client) VerifySession(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.NewUnauthenticatedError(errors.ErrCodeMissingSession, "No session token", ErrSessionInactive)
	}

	cacheKey := sessionCacheKey(token)
	if session, ok := c.cachedSession(ctx, cacheKey); ok {
		return session, nil
	}

	form := url.Values{}
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.introspectionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "Failed to create introspection request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	var body introspectionResponse
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	session, active := c.sessionFromClaims(body)
	if !active {
		return nil, errors.NewUnauthenticatedError(errors.ErrCodeSessionInactive, "Session is not active", ErrSessionInactive)
	}

	c.storeSession(ctx, cacheKey, session)
	return session, nil
}

func (c *Client) sessionFromClaims(claims introspectionResponse) (*Session, bool) {
	if active, _ := claims["active"].(bool); !active {
		return nil, false
	}

	session := &Session{Claims: claims}
	session.UserID, _ = claims["sub"].(string)
	session.SessionID, _ = claims["sid"].(string)
	if role, ok := lookupClaim(claims, c.roleClaim).(string); ok {
		session.Role = role
	}
	if exp, ok := claims["exp"].(float64); ok && exp > 0 {
		session.ExpiresAt = time.Unix(int64(exp), 0).UTC()
		if time.Now().After(session.ExpiresAt) {
			return nil, false
		}
	}
	if session.UserID == "" {
		return nil, false
	}
	return session, true
}

// lookupClaim follows a dotted path such as "metadata.role"
func lookupClaim(claims map[string]any, path string) any {
	if path == "" {
		return nil
	}
	var current any = claims
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func sessionCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (c *Client) cachedSession(ctx context.Context, key string) (*Session, bool) {
	if c.sessions == nil {
		return nil, false
	}
	raw, hit, err := c.sessions.GetSession(ctx, key)
	if err != nil {
		c.logger.Warn("Session cache lookup failed", "error", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false
	}
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, false
	}
	return &session, true
}

func (c *Client) storeSession(ctx context.Context, key string, session *Session) {
	if c.sessions == nil {
		return
	}
	ttl := c.sessionTTL
	if !session.ExpiresAt.IsZero() {
		ttl = min(ttl, time.Until(session.ExpiresAt))
	}
	if ttl <= 0 {
		return
	}

	// claims stay out of the cache
	cached := *session
	cached.Claims = nil
	raw, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := c.sessions.SetSession(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("Failed to cache session", "error", err)
	}
}

// providerUser is the provider's user record
type providerUser struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	ImageURL              string `json:"image_url"`
	CreatedAt             int64  `json:"created_at"` // unix milliseconds
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (pu providerUser) toUser() User {
	u := User{
		ID:        pu.ID,
		FirstName: pu.FirstName,
		LastName:  pu.LastName,
		ImageURL:  pu.ImageURL,
	}
	if pu.CreatedAt > 0 {
		u.CreatedAt = time.UnixMilli(pu.CreatedAt).UTC()
	}
	for _, e := range pu.EmailAddresses {
		if e.ID == pu.PrimaryEmailAddressID {
			u.Email = e.EmailAddress
			break
		}
	}
	if u.Email == "" && len(pu.EmailAddresses) > 0 {
		u.Email = pu.EmailAddresses[0].EmailAddress
	}
	return u
}

// ListUsers returns one page of users, newest first
func (c *Client) ListUsers(ctx context.Context, params ListUsersParams) ([]User, error) {
	params = params.normalize()

	q := url.Values{}
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("offset", strconv.Itoa(params.Offset))
	q.Set("order_by", "-created_at")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.usersPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "Failed to create user listing request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	var page []providerUser
	if err := c.do(req, &page); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(page))
	for _, pu := range page {
		users = append(users, pu.toUser())
	}

	c.logger.Debug("Listed identity provider users", "count", len(users), "limit", params.Limit, "offset", params.Offset)
	return users, nil
}

// do sends req and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed,
			"Failed to reach identity provider", err).
			WithContext("retryable", true)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed,
			fmt.Sprintf("Identity provider returned status %d", resp.StatusCode),
			fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, strings.TrimSpace(string(body)))).
			WithContext("status", resp.StatusCode).
			WithContext("retryable", resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed,
			"Failed to decode identity provider response", err).
			WithContext("retryable", false)
	}
	return nil
}
