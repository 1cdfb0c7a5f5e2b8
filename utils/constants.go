// File: utils/constants.go
package utils

// World geometry and match rules, fixed at build time. All positions are in
// abstract world units; paddle x positions on the wire are normalized to [0,1].
const (
	WorldWidth  = 900.0
	WorldHeight = 1600.0

	TickRate = 60 // physics integration, Hz
	SendRate = 30 // state broadcast, Hz

	MaxDt = 0.05 // seconds; clamp for a single integration step

	Padding          = 70.0 // distance from the top/bottom edge to the paddle center line
	PaddleWidthFrac  = 0.28 // paddle width as a fraction of WorldWidth
	PaddleHeightFrac = 0.02 // paddle height as a fraction of WorldHeight
	BallRadiusFrac   = 0.018

	InitBallSpeed  = 780.0  // units/sec at serve
	MaxBallSpeed   = 1200.0 // units/sec cap
	MinBounceSpeed = 100.0  // floor applied after a paddle bounce
	SpeedUp        = 1.03   // multiplier per paddle hit
	MaxBounceAngle = 1.05   // radians from vertical, at the paddle's edge
	MaxServeAngle  = 0.4    // radians from vertical, uniform at serve

	HeartsStart = 3

	MaxNameLength = 16
)
