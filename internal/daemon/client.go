package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// Client talks to a running daemon.
type Client struct {
	socketPath  string
	timeout     time.Duration
	syncTimeout time.Duration
	requestID   atomic.Uint64
}

// NewClient creates a new daemon client.
func NewClient(cfg Config) *Client {
	return &Client{
		socketPath:  cfg.SocketPath,
		timeout:     cfg.Timeout,
		syncTimeout: cfg.SyncTimeout,
	}
}

// Connect establishes a connection to the daemon.
func (c *Client) Connect() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return conn, nil
}

// IsRunning checks if the daemon is accepting connections.
func (c *Client) IsRunning() bool {
	conn, err := c.Connect()
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Ping checks if the daemon is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var result PingResult
	return c.call(ctx, c.timeout, MethodPing, nil, &result)
}

// Status retrieves daemon, sync and index status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var status StatusResult
	if err := c.call(ctx, c.timeout, MethodStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Sync asks the daemon to run a manual sync and waits for it to finish.
func (c *Client) Sync(ctx context.Context) (*SyncResult, error) {
	var result SyncResult
	if err := c.call(ctx, c.syncTimeout, MethodSync, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search runs a search through the daemon's cached lookup service.
func (c *Client) Search(ctx context.Context, params SearchParams) (*qmd.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	var result qmd.SearchResult
	if err := c.call(ctx, c.timeout, MethodSearch, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Related finds documents similar to the given one.
func (c *Client) Related(ctx context.Context, params RelatedParams) (*qmd.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	var result qmd.SearchResult
	if err := c.call(ctx, c.timeout, MethodRelated, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// call sends one request on a fresh connection and decodes the result into out.
func (c *Client) call(ctx context.Context, timeout time.Duration, method string, params any, out any) error {
	conn, err := c.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	// Deadline from context or timeout, whichever is sooner
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID(),
	}

	if err := c.send(conn, req); err != nil {
		return err
	}

	resp, err := c.receive(conn)
	if err != nil {
		return err
	}

	if resp.Error != nil {
		return resp.Error.asError(method)
	}

	resultData, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(resultData, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// send encodes and writes a request to the connection.
func (c *Client) send(conn net.Conn, req Request) error {
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

// receive reads and decodes a response from the connection.
func (c *Client) receive(conn net.Conn) (*Response, error) {
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}
	return &resp, nil
}

// nextID generates a unique request ID.
func (c *Client) nextID() string {
	id := c.requestID.Add(1)
	return fmt.Sprintf("req-%d", id)
}
