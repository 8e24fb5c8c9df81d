// Package motion implements the trapezoid and junction-velocity math used by
// the host toolhead. It has no
// dependency beyond math, so it compiles under tinygo as well as the host
// toolchain.
package motion

import "math"

// Vector4 holds the four planner axes: x, y, z, e.
type Vector4 [4]float64

func (v Vector4) Sub(o Vector4) Vector4 {
	return Vector4{v[0] - o[0], v[1] - o[1], v[2] - o[2], v[3] - o[3]}
}

// Limits is the subset of toolhead configuration a Move snapshots at
// construction time, so a later SET_VELOCITY_LIMIT does not perturb a move
// already in flight.
type Limits struct {
	MaxVelocity       float64
	MaxAccel          float64
	MaxAccelToDecel   float64
	JunctionDeviation float64
}

// infiniteAccel is the sentinel acceleration assigned to extrude-only moves,
// matching the "effectively infinite" cap used by the source planner.
const infiniteAccel = 1e8

// Move is an immutable-after-planning record for one straight-line segment.
type Move struct {
	limits Limits

	StartPos Vector4
	EndPos   Vector4
	AxesD    Vector4
	MoveD    float64
	AxesR    Vector4

	Accel             float64
	JunctionDeviation float64

	MaxCruiseV2   float64
	DeltaV2       float64
	MaxStartV2    float64
	MaxSmoothedV2 float64
	SmoothDeltaV2 float64

	IsKinematicMove bool

	StartV, CruiseV, EndV    float64
	AccelT, CruiseT, DecelT  float64
	AccelD, CruiseD, DecelD  float64

	TimingCallbacks []func(endTime float64)
}

// NewMove builds a Move from start to end at the requested speed, snapshotting
// limits so later planner-limit mutations cannot affect an in-flight move.
func NewMove(limits Limits, start, end Vector4, speed float64) *Move {
	m := &Move{
		limits:            limits,
		StartPos:          start,
		EndPos:            end,
		AxesD:             end.Sub(start),
		Accel:             limits.MaxAccel,
		JunctionDeviation: limits.JunctionDeviation,
		IsKinematicMove:   true,
	}

	cartesianD2 := m.AxesD[0]*m.AxesD[0] + m.AxesD[1]*m.AxesD[1] + m.AxesD[2]*m.AxesD[2]
	m.MoveD = math.Sqrt(cartesianD2)

	if m.MoveD < 1e-9 {
		// Extrude-only move: no Cartesian component worth tracking.
		m.EndPos[0], m.EndPos[1], m.EndPos[2] = start[0], start[1], start[2]
		m.AxesD[0], m.AxesD[1], m.AxesD[2] = 0, 0, 0
		m.MoveD = math.Abs(m.AxesD[3])
		m.Accel = infiniteAccel
		m.IsKinematicMove = false
	}

	if m.MoveD > 0 {
		inv := 1.0 / m.MoveD
		m.AxesR = Vector4{m.AxesD[0] * inv, m.AxesD[1] * inv, m.AxesD[2] * inv, m.AxesD[3] * inv}
	}

	maxV := speed
	if limits.MaxVelocity < maxV {
		maxV = limits.MaxVelocity
	}
	m.MaxCruiseV2 = maxV * maxV
	m.DeltaV2 = 2.0 * m.MoveD * m.Accel
	m.SmoothDeltaV2 = 2.0 * m.MoveD * limits.MaxAccelToDecel

	return m
}

// LimitSpeed lowers (never raises) the move's cruise speed and acceleration
// cap; called by kinematics or the extruder from their check-move hooks.
func (m *Move) LimitSpeed(speed, accel float64) {
	speed2 := speed * speed
	if speed2 < m.MaxCruiseV2 {
		m.MaxCruiseV2 = speed2
	}
	if accel < m.Accel {
		m.Accel = accel
	}
	m.DeltaV2 = 2.0 * m.MoveD * m.Accel
	m.SmoothDeltaV2 = 2.0 * m.MoveD * m.limits.MaxAccelToDecel
}

// CalcJunction computes max_start_v2, the largest squared entry velocity
// compatible with a smooth transition from prev. extruderV2 is the ceiling
// reported by the external extruder's CalcJunction(prev, cur) contract,
// computed by the caller since motion has no upward dependency on extruder.
func (m *Move) CalcJunction(prev *Move, extruderV2 float64) {
	if prev == nil || !m.IsKinematicMove || !prev.IsKinematicMove {
		return
	}

	cosTheta := -(m.AxesR[0]*prev.AxesR[0] + m.AxesR[1]*prev.AxesR[1] + m.AxesR[2]*prev.AxesR[2])
	if cosTheta > 0.999999 {
		return
	}
	if cosTheta < -0.999999 {
		cosTheta = -0.999999
	}

	sinThetaD2 := math.Sqrt(0.5 * (1.0 - cosTheta))
	cosThetaD2 := math.Sqrt(0.5 * (1.0 + cosTheta))
	tanThetaD2 := sinThetaD2 / cosThetaD2
	rJD := sinThetaD2 / (1.0 - sinThetaD2)

	maxCruiseV2 := m.MaxCruiseV2
	if prev.MaxCruiseV2 < maxCruiseV2 {
		maxCruiseV2 = prev.MaxCruiseV2
	}

	v2 := math.Min(rJD*m.JunctionDeviation*m.Accel, rJD*prev.JunctionDeviation*prev.Accel)
	v2 = math.Min(v2, 0.5*m.MoveD*tanThetaD2*m.Accel)
	v2 = math.Min(v2, 0.5*prev.MoveD*tanThetaD2*prev.Accel)
	if extruderV2 < v2 {
		v2 = extruderV2
	}
	if maxCruiseV2 < v2 {
		v2 = maxCruiseV2
	}
	if reach := prev.MaxStartV2 + prev.DeltaV2; reach < v2 {
		v2 = reach
	}

	m.MaxStartV2 = v2

	smoothed := prev.MaxSmoothedV2 + prev.SmoothDeltaV2
	if smoothed < m.MaxStartV2 {
		m.MaxSmoothedV2 = smoothed
	} else {
		m.MaxSmoothedV2 = m.MaxStartV2
	}
}

// SetJunction finalizes the trapezoid timing for start_v2, cruise_v2, end_v2
// (all squared velocities), deriving segment lengths and durations.
func (m *Move) SetJunction(startV2, cruiseV2, endV2 float64) {
	m.StartV = math.Sqrt(startV2)
	m.CruiseV = math.Sqrt(cruiseV2)
	m.EndV = math.Sqrt(endV2)

	m.AccelD = (cruiseV2 - startV2) / (2.0 * m.Accel)
	m.DecelD = (cruiseV2 - endV2) / (2.0 * m.Accel)
	if m.AccelD < 0 {
		m.AccelD = 0
	}
	if m.DecelD < 0 {
		m.DecelD = 0
	}
	m.CruiseD = m.MoveD - m.AccelD - m.DecelD
	if m.CruiseD < 1e-12 {
		m.CruiseD = 0
	}

	if m.AccelD > 0 {
		m.AccelT = m.AccelD / ((m.StartV + m.CruiseV) / 2.0)
	}
	if m.CruiseD > 0 && m.CruiseV > 0 {
		m.CruiseT = m.CruiseD / m.CruiseV
	}
	if m.DecelD > 0 {
		m.DecelT = m.DecelD / ((m.EndV + m.CruiseV) / 2.0)
	}
}

// MinMoveT is the minimum time this move could ever take, used by the queue
// to size its lookahead flush budget without waiting for final planning.
func (m *Move) MinMoveT() float64 {
	if m.MaxCruiseV2 <= 0 {
		return 0
	}
	cruiseV := math.Sqrt(m.MaxCruiseV2)
	if cruiseV <= 0 {
		return 0
	}
	return m.MoveD / cruiseV
}
