package moveclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// SessionHeader carries the board session a request belongs to.
const SessionHeader = "X-Session-ID"

// HeaderProvider allows injecting per-request headers, e.g. a session cookie for the move server.
type HeaderProvider func() map[string]string

// Client talks to the move server over its get-moves / make-move contract.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	logger  *zap.Logger
	session string

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the attempt count for idempotent requests.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		logger:         zap.NewNop(),
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForSession returns a client sharing the connection pool that tags every request with sessionID.
func (c *Client) ForSession(sessionID string) *Client {
	cp := *c
	cp.session = strings.TrimSpace(sessionID)
	return &cp
}

// GetMoves asks which tiles the piece on q.FromTile can reach.
func (c *Client) GetMoves(ctx context.Context, q MovesQuery) (*PossibleMoves, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("fromTile", q.FromTile)
	args.Set("pieceID", q.PieceID)

	var out PossibleMoves
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/get-moves?"+args.String(), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// MakeMove submits a move for validation. It is never retried.
func (c *Client) MakeMove(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	var out MoveResult
	if err := c.doJSON(ctx, fasthttp.MethodPut, "/make-move", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset starts a new game on the move server.
func (c *Client) Reset(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/", nil, nil, true)
}

// doJSON sends one request to the move server. Idempotent calls pass retry and are repeated
// on transport errors and 5xx answers with exponential backoff.
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	if err := c.prepare(req, method, path, in); err != nil {
		return err
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.logger.Debug("move_server_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(lastErr))
			if err := c.sleepWithContext(ctx, backoffDuration(attempt-1)); err != nil {
				return lastErr
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = &APIError{Status: status, Body: truncate(string(resp.Body()), 512)}
			if !shouldRetryStatus(status) {
				return lastErr
			}
			continue
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("move server: no attempt made")
	}
	return lastErr
}

func (c *Client) prepare(req *fasthttp.Request, method, path string, in any) error {
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}
	if in == nil {
		return nil
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)
	return nil
}

// computeDeadline is the earlier of the ctx deadline and the client timeout.
func (c *Client) computeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.defaultTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration doubles from 100ms per failed attempt, capped at 3.2s.
func backoffDuration(failed int) time.Duration {
	failed = min(max(failed, 1), 6)
	return (100 * time.Millisecond) << (failed - 1)
}

func shouldRetryStatus(code int) bool {
	return code == fasthttp.StatusInternalServerError || code == fasthttp.StatusBadGateway ||
		code == fasthttp.StatusServiceUnavailable || code == fasthttp.StatusGatewayTimeout
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
