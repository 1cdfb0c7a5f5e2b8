// File: game/court.go
package game

import (
	"math"
	"math/rand"
	"time"

	"github.com/pong1v1/server/utils"
)

// Side identifies the half of the court a player defends.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideTop {
		return SideBottom
	}
	return SideTop
}

// Phase is the room's state-machine phase.
type Phase string

const (
	PhaseCountdown Phase = "countdown" // pre-serve freeze
	PhasePlaying   Phase = "playing"   // physics active
	PhaseBetween   Phase = "between"   // post-score freeze awaiting the next serve
	PhaseGameOver  Phase = "gameover"  // terminal, rematch-eligible
)

// Ball is the authoritative ball state. Velocity is zero whenever the phase
// is not playing.
type Ball struct {
	X, Y   float64
	VX, VY float64
	Speed  float64
}

// Hearts tracks remaining lives per side.
type Hearts struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// Get returns the heart count for a side.
func (h Hearts) Get(s Side) int {
	if s == SideTop {
		return h.Top
	}
	return h.Bottom
}

func (h *Hearts) decrement(s Side) {
	if s == SideTop {
		if h.Top > 0 {
			h.Top--
		}
	} else if h.Bottom > 0 {
		h.Bottom--
	}
}

// Court owns the physics and phase state of one match. It is purely
// computational: no goroutines, no I/O, no locks. The RoomActor serializes
// all access by routing every mutation through its mailbox.
type Court struct {
	// Derived geometry, computed once from the world constants.
	PW, PH, R     float64
	TopY, BottomY float64

	// Normalized paddle centers in [0,1].
	TopX, BottomX float64

	Ball        Ball
	Hearts      Hearts
	Phase       Phase
	ServeToward Side // which side the next serve travels toward

	NextPhaseAt time.Time // meaningful in countdown and between only
	lastTickAt  time.Time

	rng *rand.Rand
}

// ScoreEvent is emitted when a side misses the ball.
type ScoreEvent struct {
	Hearts   Hearts
	LastMiss Side
}

// GameOverEvent is emitted when the court reaches gameover.
type GameOverEvent struct {
	Winner *Side // nil on a tie
	Reason string
	Hearts Hearts
}

// NewCourt builds a court in countdown with the ball centered and dead.
// The serve direction is drawn from rng; the injected source keeps tests
// deterministic.
func NewCourt(rng *rand.Rand, now time.Time, countdown time.Duration) *Court {
	c := &Court{
		PW:          utils.PaddleWidthFrac * utils.WorldWidth,
		PH:          utils.PaddleHeightFrac * utils.WorldHeight,
		R:           utils.BallRadiusFrac * utils.WorldWidth,
		TopY:        utils.Padding,
		BottomY:     utils.WorldHeight - utils.Padding,
		TopX:        0.5,
		BottomX:     0.5,
		Hearts:      Hearts{Top: utils.HeartsStart, Bottom: utils.HeartsStart},
		Phase:       PhaseCountdown,
		ServeToward: SideTop,
		NextPhaseAt: now.Add(countdown),
		lastTickAt:  now,
		rng:         rng,
	}
	if rng.Intn(2) == 0 {
		c.ServeToward = SideBottom
	}
	c.resetBall()
	return c
}

// resetBall centers the ball with zero velocity and the serve speed.
func (c *Court) resetBall() {
	c.Ball = Ball{
		X:     utils.WorldWidth / 2,
		Y:     utils.WorldHeight / 2,
		Speed: utils.InitBallSpeed,
	}
}

// SetPaddle clamps and stores a normalized paddle position.
func (c *Court) SetPaddle(side Side, x float64) {
	x = utils.Clamp(x, 0, 1)
	if side == SideTop {
		c.TopX = x
	} else {
		c.BottomX = x
	}
}

// Tick advances the phase machine and, only while playing, integrates
// physics. Returned events are in emission order.
func (c *Court) Tick(now time.Time, betweenDelay time.Duration) []interface{} {
	switch c.Phase {
	case PhaseCountdown, PhaseBetween:
		if !now.Before(c.NextPhaseAt) {
			c.Phase = PhasePlaying
			c.serve()
			c.lastTickAt = now
		}
	case PhasePlaying:
		return c.step(now, betweenDelay)
	}
	return nil
}

// serve places the ball at center moving toward ServeToward at the initial
// speed, deflected from vertical by a uniform angle in ±MaxServeAngle.
func (c *Court) serve() {
	c.resetBall()
	theta := (c.rng.Float64()*2 - 1) * utils.MaxServeAngle
	dir := 1.0
	if c.ServeToward == SideTop {
		dir = -1
	}
	c.Ball.VX = utils.InitBallSpeed * math.Sin(theta)
	c.Ball.VY = dir * utils.InitBallSpeed * math.Cos(theta)
}

// step performs one integration step. dt comes from the monotonic clock,
// clamped to (0, MaxDt].
func (c *Court) step(now time.Time, betweenDelay time.Duration) []interface{} {
	dt := now.Sub(c.lastTickAt).Seconds()
	c.lastTickAt = now
	if dt <= 0 {
		return nil
	}
	if dt > utils.MaxDt {
		dt = utils.MaxDt
	}

	b := &c.Ball
	b.X += b.VX * dt
	b.Y += b.VY * dt

	// Side walls.
	if b.X-c.R <= 0 {
		b.X = c.R
		b.VX = math.Abs(b.VX)
	} else if b.X+c.R >= utils.WorldWidth {
		b.X = utils.WorldWidth - c.R
		b.VX = -math.Abs(b.VX)
	}

	// Paddles. Top is tested before bottom; no swept step is needed because
	// MaxBallSpeed*MaxDt stays well under the paddle width.
	if b.VY < 0 && c.overlapsPaddle(c.TopY, c.TopX) {
		c.paddleBounce(SideTop, c.TopX*utils.WorldWidth)
		return nil
	}
	if b.VY > 0 && c.overlapsPaddle(c.BottomY, c.BottomX) {
		c.paddleBounce(SideBottom, c.BottomX*utils.WorldWidth)
		return nil
	}

	// Misses.
	if b.Y+c.R < 0 {
		return c.onScore(SideTop, now, betweenDelay)
	}
	if b.Y-c.R > utils.WorldHeight {
		return c.onScore(SideBottom, now, betweenDelay)
	}
	return nil
}

// overlapsPaddle reports whether the ball's box intersects the paddle
// centered at (nx*W, py).
func (c *Court) overlapsPaddle(py, nx float64) bool {
	b := c.Ball
	if b.Y+c.R < py-c.PH/2 || b.Y-c.R > py+c.PH/2 {
		return false
	}
	px := nx * utils.WorldWidth
	return b.X+c.R >= px-c.PW/2 && b.X-c.R <= px+c.PW/2
}

// paddleBounce deflects the ball off a paddle. The exit angle scales with
// the horizontal offset from the paddle center, capped at MaxBounceAngle;
// the vertical sign always points back into the court, so the next tick
// moves the ball away without a position correction.
func (c *Court) paddleBounce(side Side, cx float64) {
	b := &c.Ball
	rel := utils.Clamp((b.X-cx)/(c.PW/2), -1, 1)
	speed := utils.Clamp(b.Speed*utils.SpeedUp, utils.MinBounceSpeed, utils.MaxBallSpeed)
	theta := rel * utils.MaxBounceAngle
	b.VX = speed * math.Sin(theta)
	vy := math.Abs(speed * math.Cos(theta))
	if side == SideBottom {
		vy = -vy
	}
	b.VY = vy
	b.Speed = speed
}

// onScore handles a miss by loser: exactly one heart is lost, and the serve
// after the break travels toward the side that just missed.
func (c *Court) onScore(loser Side, now time.Time, betweenDelay time.Duration) []interface{} {
	if c.Phase != PhasePlaying {
		return nil
	}
	c.Phase = PhaseBetween
	c.Hearts.decrement(loser)

	events := []interface{}{ScoreEvent{Hearts: c.Hearts, LastMiss: loser}}

	if c.Hearts.Top == 0 && c.Hearts.Bottom == 0 {
		// Unreachable while misses decrement one heart at a time; kept as a
		// safety net rather than inferring extra semantics.
		return append(events, c.endGame(nil, "tie"))
	}
	if c.Hearts.Get(loser) == 0 {
		winner := loser.Opposite()
		return append(events, c.endGame(&winner, "hearts"))
	}

	c.ServeToward = loser
	c.NextPhaseAt = now.Add(betweenDelay)
	c.resetBall()
	return events
}

// endGame moves the court to gameover and freezes the ball.
func (c *Court) endGame(winner *Side, reason string) GameOverEvent {
	c.Phase = PhaseGameOver
	c.Ball.VX, c.Ball.VY = 0, 0
	return GameOverEvent{Winner: winner, Reason: reason, Hearts: c.Hearts}
}

// Forfeit ends the game in favor of the remaining side. It reports false
// when the court was already in gameover.
func (c *Court) Forfeit(leaver Side) (GameOverEvent, bool) {
	if c.Phase == PhaseGameOver {
		return GameOverEvent{}, false
	}
	winner := leaver.Opposite()
	return c.endGame(&winner, "disconnect"), true
}
