// File: game/matchmaker.go
package game

import (
	"math/rand"
	"runtime/debug"

	"github.com/lguibr/bollywood"
	"go.uber.org/zap"

	"github.com/pong1v1/server/utils"
)

// MatchmakerActor owns the FIFO queue of peers seeking a match and the
// process-wide room registry. Both are mutated only inside Receive.
type MatchmakerActor struct {
	engine *bollywood.Engine
	cfg    utils.Config
	logger *zap.Logger
	rng    *rand.Rand

	queue  []Peer
	queued map[string]bool            // peer id -> waiting
	rooms  map[string]*bollywood.PID  // room PID string -> PID

	selfPID *bollywood.PID
}

// NewMatchmakerProducer creates a producer for the MatchmakerActor.
func NewMatchmakerProducer(engine *bollywood.Engine, cfg utils.Config, logger *zap.Logger, rng *rand.Rand) bollywood.Producer {
	return func() bollywood.Actor {
		return &MatchmakerActor{
			engine: engine,
			cfg:    cfg,
			logger: logger.Named("matchmaker"),
			rng:    rng,
			queued: make(map[string]bool),
			rooms:  make(map[string]*bollywood.PID),
		}
	}
}

// Receive handles messages for the MatchmakerActor.
func (a *MatchmakerActor) Receive(ctx bollywood.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic recovered in MatchmakerActor",
				zap.Any("reason", r),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case bollywood.Started:

	case JoinQueue:
		a.handleJoinQueue(msg.Peer)

	case CancelQueue:
		a.removeFromQueue(msg.Peer)
		if msg.Peer != nil {
			msg.Peer.Send(QueueCancelledMessage{Type: "queueCancelled"})
		}

	case LeaveQueue:
		a.removeFromQueue(msg.Peer)

	case RoomClosed:
		a.handleRoomClosed(msg.RoomPID)

	case RematchAgreed:
		a.handleRematchAgreed(msg)

	case StatusRequest:
		if ctx.RequestID() != "" {
			ctx.Reply(StatusResponse{Rooms: len(a.rooms), Queue: len(a.queue)})
		}

	case bollywood.Stopping:
		for _, pid := range a.rooms {
			a.engine.Stop(pid)
		}
		a.rooms = make(map[string]*bollywood.PID)

	case bollywood.Stopped:
	}
}

// handleJoinQueue appends an unmatched, not-yet-queued peer and acknowledges
// with the queue size, then tries to pair.
func (a *MatchmakerActor) handleJoinQueue(p Peer) {
	if p == nil || !p.Connected() {
		return
	}
	if a.queued[p.ID()] {
		return
	}
	if room, _ := p.Room(); room != nil {
		return
	}

	a.queue = append(a.queue, p)
	a.queued[p.ID()] = true
	p.Send(FindingMessage{Type: "finding", QueueSize: len(a.queue)})

	a.matchPairs()
}

// matchPairs repeatedly pops the two oldest live, unmatched entries and
// builds a room for each valid pair.
func (a *MatchmakerActor) matchPairs() {
	for len(a.queue) >= 2 {
		first := a.queue[0]
		if !a.eligible(first) {
			a.queue = a.queue[1:]
			a.forget(first)
			continue
		}
		second := a.queue[1]
		if !a.eligible(second) {
			a.queue = append(a.queue[:1], a.queue[2:]...)
			a.forget(second)
			continue
		}

		a.queue = a.queue[2:]
		a.forget(first)
		a.forget(second)
		a.createRoom(first, second, false)
	}
}

// eligible filters queue entries that died or got a room while waiting.
func (a *MatchmakerActor) eligible(p Peer) bool {
	if p == nil || !p.Connected() {
		return false
	}
	room, _ := p.Room()
	return room == nil
}

func (a *MatchmakerActor) forget(p Peer) {
	if p != nil {
		delete(a.queued, p.ID())
	}
}

// createRoom spawns a RoomActor for the pair. Initial matches get random
// sides; rematch rooms arrive with sides already swapped and fixed.
func (a *MatchmakerActor) createRoom(p1, p2 Peer, rematch bool) {
	top, bottom := p1, p2
	if !rematch && a.rng.Intn(2) == 1 {
		top, bottom = p2, p1
	}

	producer := NewRoomActorProducer(RoomArgs{
		Engine:  a.engine,
		Manager: a.selfPID,
		Cfg:     a.cfg,
		Logger:  a.logger,
		Rng:     rand.New(rand.NewSource(a.rng.Int63())),
		Top:     top,
		Bottom:  bottom,
		Rematch: rematch,
	})
	pid := a.engine.Spawn(bollywood.NewProps(producer))
	if pid == nil {
		a.logger.Error("failed to spawn room actor")
		return
	}
	// Assign both peers here, not just in the room's Started handler: a
	// joinQueue processed before Started runs must already see the peer as
	// roomed, or it would re-enter the queue while in a live room.
	top.AssignRoom(pid, SideTop)
	bottom.AssignRoom(pid, SideBottom)
	a.rooms[pid.String()] = pid
	a.logger.Info("room created",
		zap.String("pid", pid.String()),
		zap.Bool("rematch", rematch),
		zap.Int("rooms", len(a.rooms)))
}

// handleRoomClosed drops an empty room from the registry and stops it. The
// room's loops are stopped by its Stopping handler before removal completes.
func (a *MatchmakerActor) handleRoomClosed(pid *bollywood.PID) {
	if pid == nil {
		return
	}
	if _, ok := a.rooms[pid.String()]; !ok {
		return
	}
	delete(a.rooms, pid.String())
	a.engine.Stop(pid)
	a.logger.Info("room closed", zap.String("pid", pid.String()), zap.Int("rooms", len(a.rooms)))
}

// handleRematchAgreed replaces the old room with a fresh one for the same
// peers. The new room's Started handler reassigns both peers before the old
// room is stopped, so their room references never dangle.
func (a *MatchmakerActor) handleRematchAgreed(msg RematchAgreed) {
	if msg.OldRoom == nil {
		return
	}
	if _, ok := a.rooms[msg.OldRoom.String()]; !ok {
		return
	}
	if msg.Top == nil || !msg.Top.Connected() || msg.Bottom == nil || !msg.Bottom.Connected() {
		return
	}

	delete(a.rooms, msg.OldRoom.String())
	a.createRoom(msg.Top, msg.Bottom, true)
	a.engine.Stop(msg.OldRoom)
}

// removeFromQueue drops a peer from the queue; absent peers are a no-op.
func (a *MatchmakerActor) removeFromQueue(p Peer) {
	if p == nil || !a.queued[p.ID()] {
		return
	}
	for i, q := range a.queue {
		if q.ID() == p.ID() {
			a.queue = append(a.queue[:i], a.queue[i+1:]...)
			break
		}
	}
	a.forget(p)
}
