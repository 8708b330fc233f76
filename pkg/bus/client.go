package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultAddr is where the daemon listens unless configured otherwise.
const DefaultAddr = "127.0.0.1:7419"

// Client talks to a daemon's bus.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
}

// NewClient accepts either host:port or an http(s) URL.
func NewClient(addr string) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("bus: parse address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("bus: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return &Client{
		base:   u,
		http:   &http.Client{Timeout: 10 * time.Second},
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}, nil
}

// Addr returns the base URL of the daemon.
func (c *Client) Addr() string {
	return c.base.String()
}

// Invoke runs command on the daemon and decodes its result into out, which
// may be nil. Rejections are returned as *CommandError.
func (c *Client) Invoke(ctx context.Context, command string, out any) error {
	u := *c.base
	u.Path += InvokePath + url.PathEscape(command)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(nil))
	if err != nil {
		return fmt.Errorf("bus: invoke %s: %w", command, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bus: invoke %s: %w", command, err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &CommandError{Command: command, Status: resp.StatusCode, Message: fmt.Sprintf("unreadable reply (%s)", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := body.Error
		if msg == "" {
			msg = resp.Status
		}
		return &CommandError{Command: command, Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(body.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Result, out); err != nil {
		return fmt.Errorf("bus: decode %s result: %w", command, err)
	}
	return nil
}

// Fetch decodes the JSON served by the daemon at path, such as
// /debug/state.
func (c *Client) Fetch(ctx context.Context, path string, out any) error {
	u := *c.base
	u.Path += "/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("bus: fetch %s: %w", path, err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bus: fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bus: fetch %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bus: decode %s: %w", path, err)
	}
	return nil
}

// Listen opens one subscription for the named events (all events when none
// are given). Events are delivered in the order the daemon emitted them and
// none are dropped; the consumer applies back-pressure by reading slowly.
// The channel is closed when ctx is done or the connection fails.
func (c *Client) Listen(ctx context.Context, events ...string) (<-chan Event, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += EventsPath
	q := url.Values{}
	for _, e := range events {
		q.Add("event", e)
	}
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("bus: subscribe: %w", err)
	}

	out := make(chan Event, 64)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	go func() {
		defer close(out)
		defer close(stop)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil || env.Type != frameEvent {
				continue
			}
			select {
			case out <- Event{Name: env.Event, Payload: env.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
