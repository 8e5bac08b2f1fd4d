package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	ws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/scmdesk/scmdesk/internal/listcache"
)

func dial(t *testing.T, srv *httptest.Server) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *ws.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestInvalidationsReachEveryClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := listcache.New(rdb, time.Minute)

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, hub.Run(ctx, cache))

	first, second := dial(t, srv), dial(t, srv)
	waitForClients(t, hub, 2)

	require.NoError(t, cache.Invalidate(ctx, listcache.GRRs))
	for _, conn := range []*ws.Conn{first, second} {
		evt := readEvent(t, conn)
		require.Equal(t, "invalidate", evt.Type)
		require.Equal(t, listcache.GRRs, evt.Collection)
	}

	require.NoError(t, first.Close())
	waitForClients(t, hub, 1)
}

func TestOriginCheck(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), []string{"https://scm.example"})
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := ws.DefaultDialer.Dial(url, map[string][]string{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.Equal(t, 403, resp.StatusCode)

	conn, _, err := ws.DefaultDialer.Dial(url, map[string][]string{"Origin": {"https://scm.example"}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestEmptyAllowListIsSameOrigin(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := ws.DefaultDialer.Dial(url, map[string][]string{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.Equal(t, 403, resp.StatusCode)

	conn, _, err := ws.DefaultDialer.Dial(url, map[string][]string{"Origin": {srv.URL}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestUnregisterClosesConnection(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	hub.mu.RLock()
	var c *client
	for k := range hub.clients {
		c = k
	}
	hub.mu.RUnlock()
	hub.unregister(c)
	require.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, ws.IsCloseError(err, ws.CloseNormalClosure), "got %v", err)
}
