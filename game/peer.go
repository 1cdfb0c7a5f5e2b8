// File: game/peer.go
package game

import "github.com/lguibr/bollywood"

// Peer is the transport-side view of a connected player. The server package
// implements it with a websocket-backed client; tests use stubs.
//
// Send must be best-effort and non-blocking: a frame for a peer that is slow
// or gone is dropped, never an error. The 30 Hz state stream self-heals.
type Peer interface {
	ID() string
	Name() string
	Send(v interface{})
	AssignRoom(room *bollywood.PID, side Side)
	ClearRoom()
	Room() (*bollywood.PID, Side)
	Connected() bool
}
