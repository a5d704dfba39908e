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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backend lists every operation the laboratory backend exposes. *Client
// implements it; tests substitute fakes.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (User, error)
	FetchState(ctx context.Context) (AppState, error)

	AddItem(ctx context.Context, in ItemInput) (Item, error)
	EditItem(ctx context.Context, id string, in ItemInput) (Item, error)
	DeleteItem(ctx context.Context, id string) (DeletedID, error)
	ImportItems(ctx context.Context, in []ItemInput) ([]Item, error)

	CreateUser(ctx context.Context, in UserInput) (CreatedUser, error)
	EditUser(ctx context.Context, id string, in UserInput) (User, error)
	DeleteUser(ctx context.Context, id string) (DeletedID, error)
	ApproveUser(ctx context.Context, id string) (User, error)
	DenyUser(ctx context.Context, id string) (User, error)

	RequestBorrow(ctx context.Context, in BorrowRequest) (BorrowCreated, error)
	ApproveBorrow(ctx context.Context, logID string) (BorrowApproved, error)
	DenyBorrow(ctx context.Context, logID, reason string) (LogEntry, error)
	ReturnItem(ctx context.Context, in ReturnRequest) (ItemReturned, error)
	RequestReturn(ctx context.Context, logID string) (ReturnRequested, error)
	MarkNotificationsRead(ctx context.Context, ids []string) ([]string, error)

	AddSuggestion(ctx context.Context, in SuggestionInput) (Suggestion, error)
	ApproveItemSuggestion(ctx context.Context, id string, in ItemApproval) (ItemSuggestionApproved, error)
	ApproveFeatureSuggestion(ctx context.Context, id string) (Suggestion, error)
	DenySuggestion(ctx context.Context, id string, in SuggestionDenial) (SuggestionDenied, error)
	AddComment(ctx context.Context, in CommentInput) (Comment, error)
}

// Ensure Client implements Backend at compile time.
var _ Backend = (*Client)(nil)

// Client talks to the laboratory backend over JSON/HTTP.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	log       zerolog.Logger
}

const (
	defaultUserAgent = "olilab/0.1"
	maxErrorBody     = 64 << 10
)

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets an overall per-request timeout. Zero keeps the transport
// default of no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log.With().Str("component", "api").Logger()
	}
}

// NewClient builds a Client for the given base URL, e.g.
// "http://lab-pc:3001/api". An empty value uses ResolveBaseURL("").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Login authenticates a user. The returned record never carries a password.
func (c *Client) Login(ctx context.Context, creds Credentials) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPost, "auth/login", creds, &out)
	return out, err
}

// FetchState retrieves every collection in one round trip.
func (c *Client) FetchState(ctx context.Context) (AppState, error) {
	var out AppState
	err := c.do(ctx, http.MethodGet, "data", nil, &out)
	return out, err
}

// AddItem creates an inventory item.
func (c *Client) AddItem(ctx context.Context, in ItemInput) (Item, error) {
	var out Item
	err := c.do(ctx, http.MethodPost, "items", in, &out)
	return out, err
}

// EditItem replaces an item's writable fields.
func (c *Client) EditItem(ctx context.Context, id string, in ItemInput) (Item, error) {
	var out Item
	err := c.do(ctx, http.MethodPut, "items/"+url.PathEscape(id), in, &out)
	return out, err
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) (DeletedID, error) {
	var out DeletedID
	err := c.do(ctx, http.MethodDelete, "items/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ImportItems creates items in bulk.
func (c *Client) ImportItems(ctx context.Context, in []ItemInput) ([]Item, error) {
	var out []Item
	err := c.do(ctx, http.MethodPost, "items/import", in, &out)
	return out, err
}

// CreateUser signs up a user. The server also creates an admin notification.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (CreatedUser, error) {
	var out CreatedUser
	err := c.do(ctx, http.MethodPost, "users", in, &out)
	return out, err
}

// EditUser replaces a user's profile with in. Omitted optional fields are
// cleared on the server.
func (c *Client) EditUser(ctx context.Context, id string, in UserInput) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPut, "users/"+url.PathEscape(id), in, &out)
	return out, err
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) (DeletedID, error) {
	var out DeletedID
	err := c.do(ctx, http.MethodDelete, "users/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ApproveUser marks a pending account approved.
func (c *Client) ApproveUser(ctx context.Context, id string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPost, "users/"+url.PathEscape(id)+"/approve", nil, &out)
	return out, err
}

// DenyUser marks a pending account denied.
func (c *Client) DenyUser(ctx context.Context, id string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPost, "users/"+url.PathEscape(id)+"/deny", nil, &out)
	return out, err
}

// RequestBorrow files a borrow request.
func (c *Client) RequestBorrow(ctx context.Context, in BorrowRequest) (BorrowCreated, error) {
	var out BorrowCreated
	err := c.do(ctx, http.MethodPost, "logs/borrow", in, &out)
	return out, err
}

// ApproveBorrow approves a pending borrow; the server decrements availability.
func (c *Client) ApproveBorrow(ctx context.Context, logID string) (BorrowApproved, error) {
	var out BorrowApproved
	err := c.do(ctx, http.MethodPost, "logs/"+url.PathEscape(logID)+"/approve", nil, &out)
	return out, err
}

// DenyBorrow denies a pending borrow with a reason.
func (c *Client) DenyBorrow(ctx context.Context, logID, reason string) (LogEntry, error) {
	var out LogEntry
	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}
	err := c.do(ctx, http.MethodPost, "logs/"+url.PathEscape(logID)+"/deny", body, &out)
	return out, err
}

// ReturnItem records the return of a borrowed item.
func (c *Client) ReturnItem(ctx context.Context, in ReturnRequest) (ItemReturned, error) {
	var out ItemReturned
	err := c.do(ctx, http.MethodPost, "logs/return", in, &out)
	return out, err
}

// RequestReturn flags a borrow as ready to be returned.
func (c *Client) RequestReturn(ctx context.Context, logID string) (ReturnRequested, error) {
	var out ReturnRequested
	err := c.do(ctx, http.MethodPost, "logs/"+url.PathEscape(logID)+"/request-return", nil, &out)
	return out, err
}

// MarkNotificationsRead acknowledges notifications.
//
// The backend has no endpoint for this yet: no request is sent and the ids
// are echoed back as if the server had confirmed them. Replace with a real
// call once POST /notifications/read exists.
func (c *Client) MarkNotificationsRead(ctx context.Context, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// AddSuggestion submits a suggestion.
func (c *Client) AddSuggestion(ctx context.Context, in SuggestionInput) (Suggestion, error) {
	var out Suggestion
	err := c.do(ctx, http.MethodPost, "suggestions", in, &out)
	return out, err
}

// ApproveItemSuggestion approves an item suggestion; the server creates the item.
func (c *Client) ApproveItemSuggestion(ctx context.Context, id string, in ItemApproval) (ItemSuggestionApproved, error) {
	var out ItemSuggestionApproved
	err := c.do(ctx, http.MethodPost, "suggestions/"+url.PathEscape(id)+"/approve-item", in, &out)
	return out, err
}

// ApproveFeatureSuggestion approves a feature suggestion.
func (c *Client) ApproveFeatureSuggestion(ctx context.Context, id string) (Suggestion, error) {
	var out Suggestion
	err := c.do(ctx, http.MethodPost, "suggestions/"+url.PathEscape(id)+"/approve-feature", nil, &out)
	return out, err
}

// DenySuggestion denies a suggestion; the server records the reason as a comment.
func (c *Client) DenySuggestion(ctx context.Context, id string, in SuggestionDenial) (SuggestionDenied, error) {
	var out SuggestionDenied
	err := c.do(ctx, http.MethodPost, "suggestions/"+url.PathEscape(id)+"/deny", in, &out)
	return out, err
}

// AddComment appends a comment to a suggestion.
func (c *Client) AddComment(ctx context.Context, in CommentInput) (Comment, error) {
	var out Comment
	err := c.do(ctx, http.MethodPost, "comments", in, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if err := validate(body); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With().Str("method", method).Str("path", path).Str("request_id", requestID).Logger()
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn().Err(err).Msg("backend unreachable")
		return &ConnectionUnavailableError{URL: c.baseURL.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return requestFailed(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// requestFailed extracts the most useful message from an error response:
// a JSON message or error field, then the raw body, then the status.
func requestFailed(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(raw)
	if msg == "" {
		msg = fmt.Sprintf("HTTP error %d", resp.StatusCode)
	}
	return &RequestFailedError{Status: resp.StatusCode, Message: msg}
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if m := strings.TrimSpace(body.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(body.Error); m != "" {
			return m
		}
	}
	return strings.TrimSpace(string(raw))
}

// IsConnectionError reports whether err means the backend was unreachable.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionUnavailable)
}
