package daemon

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	cfg := DefaultConfig()
	client := NewClient(cfg)

	assert.Equal(t, cfg.SocketPath, client.socketPath)
	assert.Equal(t, cfg.Timeout, client.timeout)
	assert.Equal(t, cfg.SyncTimeout, client.syncTimeout)
}

func TestClient_NotRunning(t *testing.T) {
	cfg := Config{
		SocketPath:  filepath.Join(t.TempDir(), "nonexistent.sock"),
		Timeout:     time.Second,
		SyncTimeout: time.Second,
	}
	client := NewClient(cfg)

	assert.False(t, client.IsRunning())
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to daemon")
}

func TestClient_RejectsInvalidParamsLocally(t *testing.T) {
	client := NewClient(Config{SocketPath: "/nonexistent.sock", Timeout: time.Second})

	_, err := client.Search(context.Background(), SearchParams{})
	assert.ErrorContains(t, err, "invalid params")

	_, err = client.Related(context.Background(), RelatedParams{})
	assert.ErrorContains(t, err, "invalid params")
}

func TestClient_NextIDIsUnique(t *testing.T) {
	client := NewClient(DefaultConfig())
	assert.Equal(t, "req-1", client.nextID())
	assert.Equal(t, "req-2", client.nextID())
}

func TestClient_ContextDeadlineBoundsCall(t *testing.T) {
	// Given: a server that accepts but never answers
	socketPath := testSocketPath(t)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		var req Request
		_ = json.NewDecoder(conn).Decode(&req)
		time.Sleep(2 * time.Second)
		_ = conn.Close()
	}()

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second, SyncTimeout: 5 * time.Second})

	// When: the caller's context expires first
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = client.Status(ctx)

	// Then: the call gives up at the caller's deadline
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
