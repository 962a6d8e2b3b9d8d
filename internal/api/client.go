package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds common client configuration.
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool

	// CacheDir enables disk-backed response caching for GET requests when
	// set. Empty disables caching entirely.
	CacheDir string
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8000",
		Timeout:   30 * time.Second,
	}
}

// Client is the typed REST client for the Tern API. All credential handling
// and the blanket 401 policy live in the underlying Transport; the client
// itself only shapes requests and decodes responses.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
}

// New creates a client. creds supplies the bearer credential for each
// request; onUnauthorized is invoked whenever any response comes back 401.
func New(cfg Config, logger zerolog.Logger, creds CredentialSource, onUnauthorized func()) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", cfg.ServerURL, err)
	}

	var rt http.RoundTripper = http.DefaultTransport
	if cfg.CacheDir != "" {
		rt = NewCachingTransport(rt, cfg.CacheDir)
	}
	rt = &LoggingTransport{Base: rt, Logger: logger}
	rt = &Transport{
		Base:           rt,
		Credentials:    creds,
		OnUnauthorized: onUnauthorized,
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}

	return &Client{
		base:   base,
		http:   &http.Client{Transport: rt, Timeout: timeout},
		logger: logger,
	}, nil
}

// --- auth ---

// Login exchanges credentials for a token pair plus identity. Rejected
// credentials surface as *AuthenticationError.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}

	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/api/auth/login/", nil, body, &pair)
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) && (ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnauthorized) {
			return nil, &AuthenticationError{Message: ae.Message}
		}
		return nil, err
	}
	return &pair, nil
}

// Register creates an account. Payload rejections surface as
// *ValidationError with any field-level messages the server provided.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register/", nil, req, &resp)
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) && ae.Status == http.StatusBadRequest {
			return nil, &ValidationError{Message: ae.Message, Fields: ae.Fields}
		}
		return nil, err
	}
	return &resp.User, nil
}

// Logout notifies the server that the session is over. Best effort only;
// callers ignore failures.
func (c *Client) Logout(ctx context.Context) error {
	return c.authed(c.do(ctx, http.MethodPost, "/api/auth/logout/", nil, nil, nil))
}

// GoogleLogin exchanges a Google authorization code for the same token pair
// the password login returns.
func (c *Client) GoogleLogin(ctx context.Context, code string) (*TokenPair, error) {
	body := map[string]string{"code": code}

	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/api/auth/google/", nil, body, &pair)
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) && (ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnauthorized) {
			return nil, &AuthenticationError{Message: ae.Message}
		}
		return nil, err
	}
	return &pair, nil
}

// VerificationStatus reports whether the account's email address has been
// verified.
func (c *Client) VerificationStatus(ctx context.Context) (bool, error) {
	var resp struct {
		EmailVerified bool `json:"email_verified"`
	}
	if err := c.authed(c.do(ctx, http.MethodGet, "/api/auth/verification-status/", nil, nil, &resp)); err != nil {
		return false, err
	}
	return resp.EmailVerified, nil
}

// ResendVerification asks the server to send a fresh verification email.
func (c *Client) ResendVerification(ctx context.Context) error {
	return c.authed(c.do(ctx, http.MethodPost, "/api/auth/resend-verification/", nil, nil, nil))
}

// --- posts ---

// HomeFeed returns the authenticated user's home timeline.
func (c *Client) HomeFeed(ctx context.Context) ([]Post, error) {
	return listCall[Post](c, ctx, "/api/posts/home/", ListParams{})
}

// Posts lists posts, optionally filtered by search.
func (c *Client) Posts(ctx context.Context, params ListParams) ([]Post, error) {
	return listCall[Post](c, ctx, "/api/posts/", params)
}

// Post fetches a single post with its canonical counters and flags.
func (c *Client) Post(ctx context.Context, id int64) (*Post, error) {
	var post Post
	if err := c.authed(c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d/", id), nil, nil, &post)); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost composes a new post, or a reply when parent is non-nil.
func (c *Client) CreatePost(ctx context.Context, content string, parent *int64) (*Post, error) {
	body := map[string]any{"content": content}
	if parent != nil {
		body["parent_post"] = *parent
	}

	var post Post
	if err := c.authed(c.do(ctx, http.MethodPost, "/api/posts/", nil, body, &post)); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost replaces a post's content.
func (c *Client) UpdatePost(ctx context.Context, id int64, content string) (*Post, error) {
	body := map[string]string{"content": content}

	var post Post
	if err := c.authed(c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/posts/%d/", id), nil, body, &post)); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.authed(c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d/", id), nil, nil, nil))
}

// Retweet toggles a retweet on via the direct endpoint; no list-then-match
// round trip is needed.
func (c *Client) Retweet(ctx context.Context, id int64) error {
	return c.authed(c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/retweet/", id), nil, nil, nil))
}

// Unretweet toggles a retweet off via the direct endpoint.
func (c *Client) Unretweet(ctx context.Context, id int64) error {
	return c.authed(c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/unretweet/", id), nil, nil, nil))
}

// --- likes ---

// Likes lists the caller's like records.
func (c *Client) Likes(ctx context.Context, params ListParams) ([]Like, error) {
	return listCall[Like](c, ctx, "/api/likes/", params)
}

// CreateLike likes a post.
func (c *Client) CreateLike(ctx context.Context, postID int64) (*Like, error) {
	body := map[string]int64{"post": postID}

	var like Like
	if err := c.authed(c.do(ctx, http.MethodPost, "/api/likes/", nil, body, &like)); err != nil {
		return nil, err
	}
	return &like, nil
}

// DeleteLike removes a like record by its record id.
func (c *Client) DeleteLike(ctx context.Context, id int64) error {
	return c.authed(c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/likes/%d/", id), nil, nil, nil))
}

// --- bookmarks ---

// Bookmarks lists the caller's bookmark records.
func (c *Client) Bookmarks(ctx context.Context, params ListParams) ([]Bookmark, error) {
	return listCall[Bookmark](c, ctx, "/api/bookmarks/", params)
}

// CreateBookmark bookmarks a post.
func (c *Client) CreateBookmark(ctx context.Context, postID int64) (*Bookmark, error) {
	body := map[string]int64{"post_id": postID}

	var bookmark Bookmark
	if err := c.authed(c.do(ctx, http.MethodPost, "/api/bookmarks/", nil, body, &bookmark)); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// DeleteBookmark removes a bookmark record by its record id.
func (c *Client) DeleteBookmark(ctx context.Context, id int64) error {
	return c.authed(c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/bookmarks/%d/", id), nil, nil, nil))
}

// --- follows ---

// Follows lists the caller's follow edges.
func (c *Client) Follows(ctx context.Context, params ListParams) ([]Follow, error) {
	return listCall[Follow](c, ctx, "/api/follows/", params)
}

// CreateFollow follows a user.
func (c *Client) CreateFollow(ctx context.Context, followingID int64) (*Follow, error) {
	body := map[string]int64{"following": followingID}

	var follow Follow
	if err := c.authed(c.do(ctx, http.MethodPost, "/api/follows/", nil, body, &follow)); err != nil {
		return nil, err
	}
	return &follow, nil
}

// DeleteFollow removes a follow edge by its record id.
func (c *Client) DeleteFollow(ctx context.Context, id int64) error {
	return c.authed(c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/follows/%d/", id), nil, nil, nil))
}

// --- notifications ---

// Notifications lists the caller's notifications.
func (c *Client) Notifications(ctx context.Context, params ListParams) ([]Notification, error) {
	return listCall[Notification](c, ctx, "/api/notifications/", params)
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.authed(c.do(ctx, http.MethodPost, fmt.Sprintf("/api/notifications/mark-read/%d/", id), nil, nil, nil))
}

// --- account ---

// UpdateAccount changes the identity fields of the current account. Payload
// rejections surface as *ValidationError.
func (c *Client) UpdateAccount(ctx context.Context, username, email string) (*User, error) {
	body := map[string]string{}
	if username != "" {
		body["username"] = username
	}
	if email != "" {
		body["email"] = email
	}

	var user User
	err := c.do(ctx, http.MethodPut, "/api/account/update/", nil, body, &user)
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) {
			switch ae.Status {
			case http.StatusUnauthorized:
				return nil, ErrSessionExpired
			case http.StatusBadRequest:
				return nil, &ValidationError{Message: ae.Message, Fields: ae.Fields}
			}
		}
		return nil, err
	}
	return &user, nil
}

// ChangePassword changes the account password. Rejections surface as
// *ValidationError.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}

	err := c.authed(c.do(ctx, http.MethodPost, "/api/account/password/", nil, body, nil))
	var ae *APIError
	if errors.As(err, &ae) && ae.Status == http.StatusBadRequest {
		return &ValidationError{Message: ae.Message, Fields: ae.Fields}
	}
	return err
}

// --- search ---

// Search runs the combined post/user search.
func (c *Client) Search(ctx context.Context, query string) ([]Post, error) {
	values := url.Values{"q": []string{query}}

	var raw json.RawMessage
	if err := c.authed(c.do(ctx, http.MethodGet, "/api/search/", values, nil, &raw)); err != nil {
		return nil, err
	}
	return decodeList[Post](raw)
}

// --- plumbing ---

// listCall fetches a list endpoint and decodes either envelope shape.
func listCall[T any](c *Client, ctx context.Context, path string, params ListParams) ([]T, error) {
	values := url.Values{}
	if params.Search != "" {
		values.Set("search", params.Search)
	}
	if params.Limit > 0 {
		values.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		values.Set("offset", strconv.Itoa(params.Offset))
	}

	var raw json.RawMessage
	if err := c.authed(c.do(ctx, http.MethodGet, path, values, nil, &raw)); err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}

// authed converts the generic 401 error into ErrSessionExpired for
// authenticated call paths. The session itself has already been cleared by
// the transport hook; this just tells the call site to stop.
func (c *Client) authed(err error) error {
	var ae *APIError
	if errors.As(err, &ae) && ae.Status == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return err
}

// do executes one request. Transport failures come back as *NetworkError,
// non-2xx statuses as *APIError with the message extracted from the payload.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, fields := errorMessage(data)
		return &APIError{Status: resp.StatusCode, Message: msg, Fields: fields}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
