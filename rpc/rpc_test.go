package rpc_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparksolution/sitemail/rpc"
	"github.com/sparksolution/sitemail/rpc/rpctest"
)

func newPair(t *testing.T, handlers map[string]rpc.Handler) (*rpc.Client, *rpctest.Broker) {
	t.Helper()
	broker := rpctest.NewBroker()
	t.Cleanup(broker.Shutdown)

	server := &rpc.Server{
		Handlers:   handlers,
		Logger:     zerolog.Nop(),
		Dial:       broker.Dialer(),
		Exchange:   "test",
		RoutingKey: "rpc",
	}
	require.NoError(t, server.Run())

	client := &rpc.Client{
		Logger:             zerolog.Nop(),
		Dial:               broker.Dialer(),
		Exchange:           "test",
		RequestRoutingKey:  "rpc",
		ResponseRoutingKey: "rpc.response",
	}
	return client, broker
}

func TestClient_Call_RoundTrip(t *testing.T) {
	client, _ := newPair(t, map[string]rpc.Handler{
		"upper": func(data []byte) []byte { return []byte(strings.ToUpper(string(data))) },
	})

	resp, err := client.Call(context.Background(), "upper", "hello", time.Second)
	require.NoError(t, err)
	assert.Equal(t, `"HELLO"`, string(resp))

	// the client is reused across calls
	resp, err = client.Call(context.Background(), "upper", "again", time.Second)
	require.NoError(t, err)
	assert.Equal(t, `"AGAIN"`, string(resp))
}

func TestClient_Call_Timeout(t *testing.T) {
	client, _ := newPair(t, map[string]rpc.Handler{})

	_, err := client.Call(context.Background(), "missing", nil, 20*time.Millisecond)
	assert.True(t, errors.Is(err, rpc.ErrTimeout))
}

func TestClient_Call_ContextCancelled(t *testing.T) {
	client, _ := newPair(t, map[string]rpc.Handler{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Call(ctx, "missing", nil, time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_Call_DialError(t *testing.T) {
	client := &rpc.Client{
		Logger: zerolog.Nop(),
		Dial:   func() (rpc.Channel, error) { return nil, errors.New("connection refused") },
	}

	_, err := client.Call(context.Background(), "any", nil, time.Second)
	assert.EqualError(t, err, "connection refused")
}

func TestClient_Call_Unencodable(t *testing.T) {
	client, _ := newPair(t, map[string]rpc.Handler{})

	_, err := client.Call(context.Background(), "any", make(chan int), time.Second)
	assert.Error(t, err)
}

func TestServer_DropsExpiredRequests(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	client, _ := newPair(t, map[string]rpc.Handler{
		"slow": func(data []byte) []byte {
			atomic.AddInt32(&calls, 1)
			<-release
			return data
		},
	})

	// the first call holds the handler, the second waits behind it and expires
	_, err := client.Call(context.Background(), "slow", 1, 50*time.Millisecond)
	assert.True(t, errors.Is(err, rpc.ErrTimeout))
	_, err = client.Call(context.Background(), "slow", 2, 50*time.Millisecond)
	assert.True(t, errors.Is(err, rpc.ErrTimeout))
	close(release)

	resp, err := client.Call(context.Background(), "slow", 3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "3", string(resp))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "expired request must not reach the handler")
}

func TestServer_Done(t *testing.T) {
	broker := rpctest.NewBroker()
	server := &rpc.Server{
		Handlers:   map[string]rpc.Handler{"echo": func(data []byte) []byte { return data }},
		Logger:     zerolog.Nop(),
		Dial:       broker.Dialer(),
		Exchange:   "test",
		RoutingKey: "rpc",
	}
	require.NoError(t, server.Run())

	select {
	case <-server.Done():
		t.Fatal("done before the broker went away")
	default:
	}

	broker.Shutdown()
	select {
	case <-server.Done():
	case <-time.After(time.Second):
		t.Fatal("handler exit not reported")
	}
}
