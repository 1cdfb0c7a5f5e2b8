// File: server/server_test.go
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pong1v1/server/game"
	"github.com/pong1v1/server/utils"
)

const (
	testWait = 3 * time.Second
	testPoll = 10 * time.Millisecond
)

func testServerConfig() utils.Config {
	cfg := utils.DefaultConfig()
	cfg.TickPeriod = 2 * time.Millisecond
	cfg.BroadcastPeriod = 2 * time.Millisecond
	cfg.CountdownDelay = 30 * time.Millisecond
	cfg.BetweenDelay = 30 * time.Millisecond
	return cfg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	return newTestServerWithConfig(t, testServerConfig())
}

func newTestServerWithConfig(t *testing.T, cfg utils.Config) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg, zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close(time.Second)
	})
	return s, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// wsClient wraps a dialed socket and collects every inbound frame as a
// generic JSON object, keyed later by its "type" field.
type wsClient struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	frames []map[string]interface{}
}

func dialWS(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	return dialWSWith(t, ts, false)
}

// dialWSWith can swallow server pings: the peer stays alive at the TCP level
// but fails the protocol liveness check.
func dialWSWith(t *testing.T, ts *httptest.Server, mutePings bool) *wsClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	if mutePings {
		conn.SetPingHandler(func(string) error { return nil })
	}
	c := &wsClient{conn: conn}
	t.Cleanup(func() { _ = conn.Close() })
	go c.readLoop()
	return c
}

func (c *wsClient) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var m map[string]interface{}
		if json.Unmarshal(raw, &m) == nil {
			c.mu.Lock()
			c.frames = append(c.frames, m)
			c.mu.Unlock()
		}
	}
}

func (c *wsClient) find(typ string) (map[string]interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.frames {
		if f["type"] == typ {
			return f, true
		}
	}
	return nil, false
}

func (c *wsClient) findLast(typ string) (map[string]interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i]["type"] == typ {
			return c.frames[i], true
		}
	}
	return nil, false
}

func (c *wsClient) waitFor(t *testing.T, typ string) map[string]interface{} {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := c.find(typ)
		return ok
	}, testWait, testPoll, "never received a %q frame", typ)
	f, _ := c.find(typ)
	return f
}

func (c *wsClient) sendJSON(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, c.conn.WriteJSON(v))
}

func getStatus(ts *httptest.Server) (game.StatusResponse, bool) {
	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		return game.StatusResponse{}, false
	}
	defer resp.Body.Close()
	var status game.StatusResponse
	if json.NewDecoder(resp.Body).Decode(&status) != nil {
		return game.StatusResponse{}, false
	}
	return status, true
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// --- HTTP surface ---

func TestHTTP_Root(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := httpGet(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong-server-ok", body)

	code, _ = httpGet(t, ts.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHTTP_Healthz(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := httpGet(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestHTTP_StatusEmpty(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status game.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, game.StatusResponse{Rooms: 0, Queue: 0}, status)
}

func TestHTTP_StatusTracksQueueAndRooms(t *testing.T) {
	_, ts := newTestServer(t)

	a := dialWS(t, ts)
	a.waitFor(t, "hello")
	a.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Alice"})
	a.waitFor(t, "finding")

	require.Eventually(t, func() bool {
		status, ok := getStatus(ts)
		return ok && status.Queue == 1
	}, testWait, testPoll)

	b := dialWS(t, ts)
	b.waitFor(t, "hello")
	b.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Bob"})

	require.Eventually(t, func() bool {
		status, ok := getStatus(ts)
		return ok && status.Rooms == 1 && status.Queue == 0
	}, testWait, testPoll)
}

// --- WebSocket flows ---

func TestWS_HelloOnConnect(t *testing.T) {
	s, ts := newTestServer(t)

	c := dialWS(t, ts)
	hello := c.waitFor(t, "hello")
	id, _ := hello["id"].(string)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, testWait, testPoll)
}

func TestWS_UnknownTypeGetsError(t *testing.T) {
	_, ts := newTestServer(t)

	c := dialWS(t, ts)
	c.waitFor(t, "hello")
	c.sendJSON(t, map[string]string{"type": "bogus"})

	errFrame := c.waitFor(t, "error")
	assert.Equal(t, "Unknown message type", errFrame["message"])
}

func TestWS_MalformedFrameIgnored(t *testing.T) {
	_, ts := newTestServer(t)

	c := dialWS(t, ts)
	c.waitFor(t, "hello")
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// The connection survives and still accepts valid frames.
	c.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Alice"})
	finding := c.waitFor(t, "finding")
	assert.Equal(t, float64(1), finding["queueSize"])
}

func TestWS_QueueAndCancel(t *testing.T) {
	_, ts := newTestServer(t)

	c := dialWS(t, ts)
	c.waitFor(t, "hello")
	c.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Alice"})
	c.waitFor(t, "finding")

	c.sendJSON(t, game.ClientFrame{Type: game.FrameCancelQueue})
	c.waitFor(t, "queueCancelled")
}

func matchTwo(t *testing.T, ts *httptest.Server) (a, b *wsClient, aSide, bSide string) {
	t.Helper()
	a = dialWS(t, ts)
	b = dialWS(t, ts)
	a.waitFor(t, "hello")
	b.waitFor(t, "hello")

	a.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Alice"})
	b.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Bob"})

	aFound := a.waitFor(t, "matchFound")
	bFound := b.waitFor(t, "matchFound")
	aSide, _ = aFound["you"].(string)
	bSide, _ = bFound["you"].(string)
	require.NotEqual(t, aSide, bSide)
	require.Equal(t, aFound["roomId"], bFound["roomId"])
	return a, b, aSide, bSide
}

func TestWS_MatchAnnouncesSanitizedNames(t *testing.T) {
	_, ts := newTestServer(t)

	a := dialWS(t, ts)
	b := dialWS(t, ts)
	a.waitFor(t, "hello")
	b.waitFor(t, "hello")

	a.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "  Alice  "})
	b.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue})

	found := a.waitFor(t, "matchFound")
	players, ok := found["players"].([]interface{})
	require.True(t, ok)
	require.Len(t, players, 2)

	names := map[string]bool{}
	for _, p := range players {
		entry, ok := p.(map[string]interface{})
		require.True(t, ok)
		name, _ := entry["name"].(string)
		names[name] = true
	}
	assert.True(t, names["Alice"], "whitespace should be trimmed from names")
	assert.True(t, names["Player"], "missing names should fall back to the default")
}

func TestWS_PaddleInputReachesOpponent(t *testing.T) {
	_, ts := newTestServer(t)
	a, b, aSide, _ := matchTwo(t, ts)

	x := 0.25
	a.sendJSON(t, game.ClientFrame{Type: game.FramePaddle, X: &x})

	paddleKey := "topX"
	if aSide == "bottom" {
		paddleKey = "bottomX"
	}
	require.Eventually(t, func() bool {
		state, ok := b.findLast("state")
		if !ok {
			return false
		}
		paddles, ok := state["paddles"].(map[string]interface{})
		return ok && paddles[paddleKey] == 0.25
	}, testWait, testPoll)
}

func TestWS_StateReachesPlaying(t *testing.T) {
	_, ts := newTestServer(t)
	a, _, aSide, _ := matchTwo(t, ts)

	require.Eventually(t, func() bool {
		state, ok := a.findLast("state")
		return ok && state["phase"] == "playing"
	}, testWait, testPoll)

	state, _ := a.findLast("state")
	assert.Equal(t, aSide, state["you"])
	params, ok := state["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(900), params["W"])
	assert.Equal(t, float64(1600), params["H"])
}

func TestWS_DisconnectForfeitsMatch(t *testing.T) {
	_, ts := newTestServer(t)
	a, b, _, bSide := matchTwo(t, ts)
	_ = a.conn.Close()

	over := b.waitFor(t, "gameOver")
	assert.Equal(t, "disconnect", over["reason"])
	assert.Equal(t, bSide, over["winner"])
}

func TestWS_LeaveRoomForfeitsMatch(t *testing.T) {
	_, ts := newTestServer(t)
	a, b, _, bSide := matchTwo(t, ts)

	a.sendJSON(t, game.ClientFrame{Type: game.FrameLeaveRoom})

	over := b.waitFor(t, "gameOver")
	assert.Equal(t, "disconnect", over["reason"])
	assert.Equal(t, bSide, over["winner"])
}

func TestWS_KeepAliveTimeoutForfeitsMatch(t *testing.T) {
	cfg := testServerConfig()
	cfg.PingPeriod = 50 * time.Millisecond
	cfg.PongWait = 150 * time.Millisecond
	s, ts := newTestServerWithConfig(t, cfg)

	a := dialWSWith(t, ts, true) // never answers pings
	b := dialWS(t, ts)
	a.waitFor(t, "hello")
	b.waitFor(t, "hello")

	a.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Alice"})
	b.sendJSON(t, game.ClientFrame{Type: game.FrameJoinQueue, Name: "Bob"})
	a.waitFor(t, "matchFound")
	bFound := b.waitFor(t, "matchFound")
	bSide, _ := bFound["you"].(string)

	// The muted peer misses a ping cycle, its read deadline expires, and the
	// disconnect path forfeits the match.
	over := b.waitFor(t, "gameOver")
	assert.Equal(t, "disconnect", over["reason"])
	assert.Equal(t, bSide, over["winner"])

	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, testWait, testPoll)
}

func TestWS_PaddleIgnoredOutsideRoom(t *testing.T) {
	_, ts := newTestServer(t)

	c := dialWS(t, ts)
	c.waitFor(t, "hello")

	// No room yet: the frame is dropped without an error reply.
	x := 0.5
	c.sendJSON(t, game.ClientFrame{Type: game.FramePaddle, X: &x})
	time.Sleep(50 * time.Millisecond)
	_, got := c.find("error")
	assert.False(t, got)
}
