// internal/adapters/channex/client.go
package channex

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"channelsync/internal/adapters/observability"
	"channelsync/internal/domain"
)

// Client talks to the channel-manager HTTP API with client-side rate
// limiting, retries on 429/transient 5xx, and Retry-After support. Pushes are
// idempotent per (room, date) when repushed identically, so retrying is safe.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrUnauthorized = errors.New("channex: unauthorized")
	ErrForbidden    = errors.New("channex: forbidden")
)

/********** domain.ChannelClient **********/

func (c *Client) CreateRoom(ctx context.Context, cfg domain.ChannelConfig, payload map[string]any) (string, error) {
	var out map[string]any
	url := fmt.Sprintf("%s/connections/%s/rooms", c.base, cfg.ConnectionID)
	if err := c.do(ctx, cfg, http.MethodPost, url, "create_room", payload, &out); err != nil {
		return "", err
	}
	for _, k := range []string{"room_id", "id", "external_id"} {
		if v, ok := out[k]; ok {
			switch t := v.(type) {
			case string:
				return t, nil
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64), nil
			}
		}
	}
	return "", fmt.Errorf("create room response carries no id: %v", out)
}

func (c *Client) RemoveRoom(ctx context.Context, cfg domain.ChannelConfig, externalRoomID string) error {
	url := fmt.Sprintf("%s/connections/%s/rooms/%s", c.base, cfg.ConnectionID, externalRoomID)
	return c.do(ctx, cfg, http.MethodDelete, url, "remove_room", nil, nil)
}

func (c *Client) PushInventory(ctx context.Context, cfg domain.ChannelConfig, date string, items []map[string]any) error {
	url := fmt.Sprintf("%s/connections/%s/inventory/%s", c.base, cfg.ConnectionID, date)
	return c.do(ctx, cfg, http.MethodPut, url, "push_inventory", map[string]any{"items": items}, nil)
}

func (c *Client) PullInventory(ctx context.Context, cfg domain.ChannelConfig, from, to string) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/connections/%s/inventory?from=%s&to=%s", c.base, cfg.ConnectionID, from, to)

	// The API has shipped both a bare array and an {items: [...]} envelope;
	// accept either.
	var raw json.RawMessage
	if err := c.do(ctx, cfg, http.MethodGet, url, "pull_inventory", nil, &raw); err != nil {
		return nil, err
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var envelope struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected pull payload: %w", err)
	}
	return envelope.Items, nil
}

func (c *Client) Ping(ctx context.Context, cfg domain.ChannelConfig) error {
	url := fmt.Sprintf("%s/connections/%s/health", c.base, cfg.ConnectionID)
	return c.do(ctx, cfg, http.MethodGet, url, "ping", nil, nil)
}

/********** internals **********/

// do performs one API call with client-side rate limiting, retries on 429 and
// transient 5xx honoring Retry-After, and JSON decode into out (when non-nil).
func (c *Client) do(ctx context.Context, cfg domain.ChannelConfig, method, url, endpoint string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var encoded []byte
	if body != nil {
		var err error
		if encoded, err = json.Marshal(body); err != nil {
			return err
		}
	}

	start := time.Now()
	var lastStatus int
	defer func() { observability.ObserveExternal("channex", endpoint, lastStatus, time.Since(start)) }()

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		if cfg.APIKey != "" {
			req.Header.Set("X-API-Key", cfg.APIKey)
		}
		req.Header.Set("Accept", "application/json")
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("User-Agent", "channelsync/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		lastStatus = resp.StatusCode

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			// success, empty body
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	// concurrency-safe jitter using crypto/rand
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
