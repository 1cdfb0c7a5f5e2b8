// File: game/room.go
package game

import (
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/lguibr/bollywood"
	"go.uber.org/zap"

	"github.com/pong1v1/server/utils"
)

// playerSlot is one side of a room.
type playerSlot struct {
	peer Peer   // nil after the player leaves
	name string // snapshot taken at room creation
	vote bool   // rematch vote
}

// RoomActor runs one live match between exactly two peers. All room state,
// including the Court, is mutated only inside Receive, which gives the
// single-writer property; the tick and broadcast loops are goroutines that
// post messages into the actor's own mailbox.
type RoomActor struct {
	id      string
	cfg     utils.Config
	engine  *bollywood.Engine
	manager *bollywood.PID
	logger  *zap.Logger
	rng     *rand.Rand
	rematch bool // announce rematchStart alongside matchFound

	court       *Court
	top, bottom playerSlot

	selfPID *bollywood.PID

	tickTicker      *time.Ticker
	broadcastTicker *time.Ticker
	stopLoopsCh     chan struct{}
}

// RoomArgs holds everything needed to construct a RoomActor.
type RoomArgs struct {
	Engine  *bollywood.Engine
	Manager *bollywood.PID
	Cfg     utils.Config
	Logger  *zap.Logger
	Rng     *rand.Rand // owned exclusively by this room
	Top     Peer
	Bottom  Peer
	Rematch bool
}

// NewRoomActorProducer creates a producer for a RoomActor.
func NewRoomActorProducer(args RoomArgs) bollywood.Producer {
	return func() bollywood.Actor {
		id := uuid.NewString()
		return &RoomActor{
			id:          id,
			cfg:         args.Cfg,
			engine:      args.Engine,
			manager:     args.Manager,
			logger:      args.Logger.With(zap.String("room", id)),
			rng:         args.Rng,
			rematch:     args.Rematch,
			top:         playerSlot{peer: args.Top, name: args.Top.Name()},
			bottom:      playerSlot{peer: args.Bottom, name: args.Bottom.Name()},
			stopLoopsCh: make(chan struct{}),
		}
	}
}

// Receive handles messages for the RoomActor.
func (a *RoomActor) Receive(ctx bollywood.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic recovered in RoomActor",
				zap.Any("reason", r),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case bollywood.Started:
		a.handleStart()

	case roomTick:
		a.handleTick(time.Now())

	case broadcastTick:
		a.broadcastState(time.Now())

	case PaddleInput:
		if side, ok := a.sideOf(msg.Peer); ok {
			a.court.SetPaddle(side, msg.X)
		}

	case RematchVote:
		a.handleRematchVote(msg.Peer)

	case PeerLeft:
		a.handlePeerLeft(msg.Peer)

	case internalForceGameOverTestMsg:
		a.court.Phase = PhaseGameOver
		a.court.Ball.VX, a.court.Ball.VY = 0, 0

	case bollywood.Stopping:
		a.stopLoops()

	case bollywood.Stopped:
	}
}

// handleStart wires both peers in, announces the match, and starts the two
// periodic loops.
func (a *RoomActor) handleStart() {
	now := time.Now()
	a.court = NewCourt(a.rng, now, a.cfg.CountdownDelay)

	a.top.peer.AssignRoom(a.selfPID, SideTop)
	a.bottom.peer.AssignRoom(a.selfPID, SideBottom)

	countdown := int(a.cfg.CountdownDelay / time.Second)
	players := []MatchPlayer{
		{Name: a.top.name, Side: SideTop},
		{Name: a.bottom.name, Side: SideBottom},
	}
	a.top.peer.Send(MatchFoundMessage{
		Type: "matchFound", RoomID: a.id, Players: players,
		You: SideTop, Countdown: countdown,
	})
	a.bottom.peer.Send(MatchFoundMessage{
		Type: "matchFound", RoomID: a.id, Players: players,
		You: SideBottom, Countdown: countdown,
	})
	if a.rematch {
		a.sendBoth(RematchStartMessage{Type: "rematchStart", Countdown: countdown})
	}

	a.startLoops()
	a.logger.Info("room started",
		zap.String("top", a.top.name),
		zap.String("bottom", a.bottom.name),
		zap.Bool("rematch", a.rematch))
}

// handleTick advances the court and pushes any resulting events out-of-band.
func (a *RoomActor) handleTick(now time.Time) {
	if a.court == nil {
		return
	}
	for _, ev := range a.court.Tick(now, a.cfg.BetweenDelay) {
		switch e := ev.(type) {
		case ScoreEvent:
			a.sendBoth(ScoreMessage{Type: "score", Hearts: e.Hearts, LastMiss: e.LastMiss})
		case GameOverEvent:
			a.sendBoth(gameOverMessage(e))
			a.logger.Info("game over", zap.String("reason", e.Reason))
		}
	}
}

// handleRematchVote records a vote and, on agreement, asks the matchmaker to
// build the swapped room. Votes are only meaningful in gameover.
func (a *RoomActor) handleRematchVote(p Peer) {
	if a.court == nil || a.court.Phase != PhaseGameOver {
		return
	}
	side, ok := a.sideOf(p)
	if !ok {
		return
	}
	a.slot(side).vote = true

	if opp := a.slot(side.Opposite()).peer; opp != nil && opp.Connected() {
		opp.Send(RematchOfferedMessage{Type: "rematchOffered"})
	}

	topPeer, bottomPeer := a.top.peer, a.bottom.peer
	if a.top.vote && a.bottom.vote &&
		topPeer != nil && topPeer.Connected() &&
		bottomPeer != nil && bottomPeer.Connected() {
		// Sides swap between rematches for fairness.
		a.engine.Send(a.manager, RematchAgreed{
			OldRoom: a.selfPID,
			Top:     bottomPeer,
			Bottom:  topPeer,
		}, a.selfPID)
	}
}

// handlePeerLeft converges leaveRoom, socket close, and socket error: the
// leaving side forfeits unless the game was already over, and the room is
// torn down once both slots are empty.
func (a *RoomActor) handlePeerLeft(p Peer) {
	side, ok := a.sideOf(p)
	if !ok {
		return
	}
	a.slot(side).peer = nil
	p.ClearRoom()

	other := a.slot(side.Opposite()).peer
	if other != nil && other.Connected() {
		if ev, ended := a.court.Forfeit(side); ended {
			p.Send(gameOverMessage(ev))
			other.Send(gameOverMessage(ev))
			a.logger.Info("forfeit", zap.String("leaver", string(side)))
		}
	}

	if a.top.peer == nil && a.bottom.peer == nil {
		a.engine.Send(a.manager, RoomClosed{RoomPID: a.selfPID}, a.selfPID)
	}
}

// startLoops starts the tick and broadcast tickers, each feeding the mailbox.
func (a *RoomActor) startLoops() {
	a.tickTicker = time.NewTicker(a.cfg.TickPeriod)
	a.broadcastTicker = time.NewTicker(a.cfg.BroadcastPeriod)
	go a.runLoop(a.tickTicker.C, roomTick{})
	go a.runLoop(a.broadcastTicker.C, broadcastTick{})
}

func (a *RoomActor) runLoop(ticks <-chan time.Time, msg interface{}) {
	for {
		select {
		case <-a.stopLoopsCh:
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			a.engine.Send(a.selfPID, msg, nil)
		}
	}
}

// stopLoops stops both tickers. Loops must be down before the room leaves
// the registry.
func (a *RoomActor) stopLoops() {
	if a.tickTicker != nil {
		a.tickTicker.Stop()
	}
	if a.broadcastTicker != nil {
		a.broadcastTicker.Stop()
	}
	select {
	case <-a.stopLoopsCh:
	default:
		close(a.stopLoopsCh)
	}
}

func (a *RoomActor) slot(s Side) *playerSlot {
	if s == SideTop {
		return &a.top
	}
	return &a.bottom
}

// sideOf maps a peer to its slot by identity. Peers no longer in a slot get
// no side: their messages are stale and dropped.
func (a *RoomActor) sideOf(p Peer) (Side, bool) {
	if p == nil {
		return "", false
	}
	if a.top.peer != nil && a.top.peer.ID() == p.ID() {
		return SideTop, true
	}
	if a.bottom.peer != nil && a.bottom.peer.ID() == p.ID() {
		return SideBottom, true
	}
	return "", false
}

func gameOverMessage(e GameOverEvent) GameOverMessage {
	return GameOverMessage{Type: "gameOver", Winner: e.Winner, Reason: e.Reason, Hearts: e.Hearts}
}
