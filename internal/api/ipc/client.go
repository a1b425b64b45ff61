package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/domain/dial"
)

// Client talks to a running daemon over its control socket.
type Client struct {
	// conn is the underlying unix socket connection.
	conn net.Conn
	// decoder reads one JSON response per round trip,
	// preserving buffered bytes between calls.
	decoder *json.Decoder

	// callTimeout bounds each request round trip.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for control calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errSocketPathRequired is returned when the socket path is missing.
	errSocketPathRequired = errors.New("socket path must be provided")
	// errEmptyStatus is returned when the daemon answers a status request
	// without a state snapshot.
	errEmptyStatus = errors.New("daemon returned an empty status")
)

// Dial connects to the daemon's control socket.
func Dial(ctx context.Context, socketPath string, opts ...Option) (*Client, error) {
	if socketPath == "" {
		return nil, errSocketPathRequired
	}

	var d net.Dialer

	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial control socket: %w", err)
	}

	client := &Client{
		conn:        conn,
		decoder:     json.NewDecoder(conn),
		callTimeout: time.Duration(config.DefaultCallTimeoutMS) * time.Millisecond,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Status fetches a snapshot of the daemon state.
func (c *Client) Status(ctx context.Context) (*dial.Status, error) {
	resp, err := c.roundTrip(ctx, Request{Type: TypeStatus})
	if err != nil {
		return nil, err
	}

	if resp.State == nil {
		return nil, errEmptyStatus
	}

	return resp.State, nil
}

// Rotate injects count rotation steps in the given direction.
func (c *Client) Rotate(ctx context.Context, direction dial.Direction, count int) error {
	_, err := c.roundTrip(ctx, Request{
		Type:      TypeRotate,
		Direction: string(direction),
		Count:     count,
	})

	return err
}

// Press injects count button presses.
func (c *Client) Press(ctx context.Context, count int) error {
	_, err := c.roundTrip(ctx, Request{Type: TypePress, Count: count})

	return err
}

func (c *Client) roundTrip(ctx context.Context, req Request) (*Response, error) {
	deadline := time.Now().Add(c.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set socket deadline: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if _, err = c.conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err = c.decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !resp.OK() {
		return &resp, fmt.Errorf("daemon rejected request: %s", resp.Error)
	}

	return &resp, nil
}
