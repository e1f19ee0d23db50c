// Package api is the HTTP client for the platform's REST backend.
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

	"carelink/internal/models"
	"carelink/internal/observability"
)

// TokenSource supplies bearer tokens. Refresh must be single-flight: many
// concurrent callers seeing an expired token share one network refresh.
// stale is the token the server just rejected.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context, stale string) (string, error)
	// Teardown drops the session after the refresh itself failed.
	Teardown(ctx context.Context)
}

type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
}

// New builds an unauthenticated client; use WithTokens for bearer calls.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: u, http: httpClient}, nil
}

// WithTokens returns a copy of c that authenticates with ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do 发请求。authed 为 true 时带 Bearer，401 时刷新一次 token 后重试，刷新失败则拆除会话
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, authed bool) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return models.NewInternalError(err)
		}
		payload = b
	}

	token := ""
	if authed {
		if c.tokens == nil {
			return models.NewUnauthorizedError("not signed in")
		}
		t, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		token = t
	}

	resp, err := c.send(ctx, method, path, query, payload, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		drain(resp)
		fresh, err := c.tokens.Refresh(ctx, token)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.tokens.Teardown(ctx)
			return fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
		}
		resp, err = c.send(ctx, method, path, query, payload, fresh)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.tokens.Teardown(ctx)
			return models.ErrUnauthorized
		}
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewNetworkError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.NewInternalError(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (*http.Response, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIRequests.WithLabelValues(method, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, models.NewNetworkError(err)
	}
	observability.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()
	return resp, nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Message != "" {
			msg = eb.Message
		} else if eb.Error != "" {
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict:
		return models.NewValidationError(msg)
	case resp.StatusCode == http.StatusUnauthorized:
		return models.NewUnauthorizedError(msg)
	case resp.StatusCode == http.StatusForbidden:
		return models.NewForbiddenError(msg)
	case resp.StatusCode == http.StatusNotFound:
		return &models.AppError{Code: models.CodeNotFound, Message: msg}
	}
	return models.NewInternalError(fmt.Errorf("backend %d: %s", resp.StatusCode, msg))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	return errors.Is(err, models.ErrNetwork)
}
