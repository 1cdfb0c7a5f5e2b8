// File: game/messages.go
package game

import "github.com/lguibr/bollywood"

// --- WebSocket messages (client -> server) ---

// ClientFrame is the single inbound envelope. Extra fields are ignored;
// fields irrelevant to a given type are simply left unset.
type ClientFrame struct {
	Type string   `json:"type"`
	Name string   `json:"name,omitempty"`
	X    *float64 `json:"x,omitempty"`
}

// Inbound frame types.
const (
	FrameJoinQueue      = "joinQueue"
	FrameCancelQueue    = "cancelQueue"
	FramePaddle         = "paddle"
	FrameRematchRequest = "rematchRequest"
	FrameLeaveRoom      = "leaveRoom"
)

// --- WebSocket messages (server -> client) ---

// HelloMessage is sent once per connection, right after accept.
type HelloMessage struct {
	Type string `json:"type"` // "hello"
	ID   string `json:"id"`
}

// FindingMessage acknowledges an enqueue.
type FindingMessage struct {
	Type      string `json:"type"` // "finding"
	QueueSize int    `json:"queueSize"`
}

// QueueCancelledMessage acknowledges a cancelQueue.
type QueueCancelledMessage struct {
	Type string `json:"type"` // "queueCancelled"
}

// MatchPlayer describes one participant in a matchFound announcement.
type MatchPlayer struct {
	Name string `json:"name"`
	Side Side   `json:"side"`
}

// MatchFoundMessage announces a new room to both participants.
type MatchFoundMessage struct {
	Type      string        `json:"type"` // "matchFound"
	RoomID    string        `json:"roomId"`
	Players   []MatchPlayer `json:"players"`
	You       Side          `json:"you"`
	Countdown int           `json:"countdown"`
}

// StateParams carries the derived court geometry so clients can render
// without duplicating the world constants.
type StateParams struct {
	W  float64 `json:"W"`
	H  float64 `json:"H"`
	R  float64 `json:"r"`
	PW float64 `json:"pw"`
	PH float64 `json:"ph"`
}

// StateBall is the ball position within a state frame.
type StateBall struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StatePaddles carries both normalized paddle positions.
type StatePaddles struct {
	TopX    float64 `json:"topX"`
	BottomX float64 `json:"bottomX"`
}

// StateMessage is the periodic authoritative snapshot. Identical for both
// recipients except You.
type StateMessage struct {
	Type    string       `json:"type"` // "state"
	T       int64        `json:"t"`    // ms since epoch
	Phase   Phase        `json:"phase"`
	Ball    StateBall    `json:"ball"`
	Paddles StatePaddles `json:"paddles"`
	Hearts  Hearts       `json:"hearts"`
	Params  StateParams  `json:"params"`
	You     Side         `json:"you"`
}

// ScoreMessage is pushed out-of-band when a side misses.
type ScoreMessage struct {
	Type     string `json:"type"` // "score"
	Hearts   Hearts `json:"hearts"`
	LastMiss Side   `json:"lastMiss"`
}

// GameOverMessage signals the end of the match.
type GameOverMessage struct {
	Type   string `json:"type"`   // "gameOver"
	Winner *Side  `json:"winner"` // null on a tie
	Reason string `json:"reason"` // "hearts" | "disconnect" | "tie"
	Hearts Hearts `json:"hearts"`
}

// RematchOfferedMessage tells a side that the opponent wants a rematch.
type RematchOfferedMessage struct {
	Type string `json:"type"` // "rematchOffered"
}

// RematchStartMessage announces the agreed rematch alongside the fresh
// matchFound.
type RematchStartMessage struct {
	Type      string `json:"type"` // "rematchStart"
	Countdown int    `json:"countdown"`
}

// ErrorMessage reports an unrecognized frame type.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// --- MatchmakerActor messages ---

// JoinQueue appends a peer to the matchmaking queue.
type JoinQueue struct {
	Peer Peer
}

// CancelQueue removes a peer from the queue and acknowledges with
// queueCancelled.
type CancelQueue struct {
	Peer Peer
}

// LeaveQueue removes a peer silently (disconnect path).
type LeaveQueue struct {
	Peer Peer
}

// RoomClosed notifies the matchmaker that a room has no peers left.
type RoomClosed struct {
	RoomPID *bollywood.PID
}

// RematchAgreed asks the matchmaker to replace OldRoom with a fresh room for
// the same two peers. Sides are already swapped: Top is the previous
// bottom player and vice versa.
type RematchAgreed struct {
	OldRoom *bollywood.PID
	Top     Peer
	Bottom  Peer
}

// StatusRequest asks the matchmaker for counters (used via Ask).
type StatusRequest struct{}

// StatusResponse is the reply to StatusRequest.
type StatusResponse struct {
	Rooms int `json:"rooms"`
	Queue int `json:"queue"`
}

// --- RoomActor messages ---

// PaddleInput carries a normalized paddle target from a peer.
type PaddleInput struct {
	Peer Peer
	X    float64
}

// RematchVote records a peer's rematch request.
type RematchVote struct {
	Peer Peer
}

// PeerLeft signals that a peer left the room, via leaveRoom or disconnect.
type PeerLeft struct {
	Peer Peer
}

// roomTick drives one physics/phase step.
type roomTick struct{}

// broadcastTick drives one state broadcast.
type broadcastTick struct{}

// --- Internal test messages ---

// internalForceGameOverTestMsg moves the court to gameover inside the actor
// loop so rematch paths can be exercised without playing a full match.
type internalForceGameOverTestMsg struct{}
