// File: game/room_broadcast.go
package game

import (
	"time"

	"github.com/pong1v1/server/utils"
)

// broadcastState emits one per-side state frame. The schema is identical for
// both recipients except You. Sends are non-blocking, so the simulation is
// never held up by a slow peer.
func (a *RoomActor) broadcastState(now time.Time) {
	if a.court == nil {
		return
	}
	frame := StateMessage{
		Type:  "state",
		T:     now.UnixMilli(),
		Phase: a.court.Phase,
		Ball:  StateBall{X: a.court.Ball.X, Y: a.court.Ball.Y},
		Paddles: StatePaddles{
			TopX:    a.court.TopX,
			BottomX: a.court.BottomX,
		},
		Hearts: a.court.Hearts,
		Params: StateParams{
			W:  utils.WorldWidth,
			H:  utils.WorldHeight,
			R:  a.court.R,
			PW: a.court.PW,
			PH: a.court.PH,
		},
	}

	if p := a.top.peer; p != nil && p.Connected() {
		frame.You = SideTop
		p.Send(frame)
	}
	if p := a.bottom.peer; p != nil && p.Connected() {
		frame.You = SideBottom
		p.Send(frame)
	}
}

// sendBoth pushes an out-of-band event to every side still present.
func (a *RoomActor) sendBoth(v interface{}) {
	if p := a.top.peer; p != nil && p.Connected() {
		p.Send(v)
	}
	if p := a.bottom.peer; p != nil && p.Connected() {
		p.Send(v)
	}
}
