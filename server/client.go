// File: server/client.go
package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lguibr/bollywood"
	"go.uber.org/zap"

	"github.com/pong1v1/server/game"
	"github.com/pong1v1/server/utils"
)

const maxFrameSize = 1024

// Client is one connected peer: the per-session record plus the two pumps
// that own its websocket. It implements game.Peer.
//
// The read pump is the only reader and dispatches frames in arrival order;
// the write pump is the only writer and drains the send channel. Send never
// blocks: frames to a slow or closed peer are dropped and the 30 Hz state
// stream self-heals.
type Client struct {
	id   string
	conn *websocket.Conn
	srv  *Server

	send chan []byte

	mu     sync.Mutex
	name   string
	room   *bollywood.PID
	side   game.Side
	closed bool
}

func newClient(srv *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		srv:  srv,
		name: "Player",
		send: make(chan []byte, srv.cfg.SendBuffer),
	}
}

// ID returns the server-generated peer identity.
func (c *Client) ID() string { return c.id }

// Name returns the sanitized display name.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// AssignRoom records the room assignment; called by the room actor.
func (c *Client) AssignRoom(room *bollywood.PID, side game.Side) {
	c.mu.Lock()
	c.room = room
	c.side = side
	c.mu.Unlock()
}

// ClearRoom drops the room assignment; called by the room actor on leave.
func (c *Client) ClearRoom() {
	c.mu.Lock()
	c.room = nil
	c.side = ""
	c.mu.Unlock()
}

// Room returns the current room assignment, if any.
func (c *Client) Room() (*bollywood.PID, game.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.side
}

// Connected reports whether the peer can still receive frames.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send marshals v and queues it, best-effort.
func (c *Client) Send(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.srv.logger.Error("marshal outbound frame", zap.Error(err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		// Slow consumer; drop the frame rather than stall a room.
	}
}

// closeSend marks the client closed and releases the write pump.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads and dispatches inbound frames until the socket dies. The
// pong handler extends the read deadline, so a peer that misses a ping cycle
// times out here and follows the disconnect path.
func (c *Client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.srv.logger.Debug("read error", zap.String("peer", c.id), zap.Error(err))
			}
			return
		}
		c.dispatch(raw)
	}
}

// dispatch routes one inbound frame. Malformed frames are silently dropped;
// unknown types get an error reply; out-of-context commands are ignored.
func (c *Client) dispatch(raw []byte) {
	var frame game.ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}

	engine := c.srv.engine
	switch frame.Type {
	case game.FrameJoinQueue:
		c.setName(utils.SanitizeName(frame.Name))
		engine.Send(c.srv.matchmakerPID, game.JoinQueue{Peer: c}, nil)

	case game.FrameCancelQueue:
		engine.Send(c.srv.matchmakerPID, game.CancelQueue{Peer: c}, nil)

	case game.FramePaddle:
		if room, _ := c.Room(); room != nil && frame.X != nil {
			engine.Send(room, game.PaddleInput{Peer: c, X: *frame.X}, nil)
		}

	case game.FrameRematchRequest:
		if room, _ := c.Room(); room != nil {
			engine.Send(room, game.RematchVote{Peer: c}, nil)
		}

	case game.FrameLeaveRoom:
		if room, _ := c.Room(); room != nil {
			engine.Send(room, game.PeerLeft{Peer: c}, nil)
		}

	default:
		c.Send(game.ErrorMessage{Type: "error", Message: "Unknown message type"})
	}
}

// writePump owns all writes: queued frames plus the periodic liveness ping.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.srv.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// teardown is the single disconnect path: queue removal, room forfeit,
// registry removal.
func (c *Client) teardown() {
	engine := c.srv.engine
	engine.Send(c.srv.matchmakerPID, game.LeaveQueue{Peer: c}, nil)
	if room, _ := c.Room(); room != nil {
		engine.Send(room, game.PeerLeft{Peer: c}, nil)
	}
	c.closeSend()
	c.srv.unregister(c)
}
