package toolhead

import "gopper/motion"

// Reactor is the event-loop contract the toolhead schedules its periodic
// flush timer and drip-mode waits against. Timer handles are opaque
// (interface{}) so this package has no hard dependency on one reactor
// implementation; host/reactor.Reactor satisfies this directly.
type Reactor interface {
	Monotonic() float64
	Pause(deadline float64) float64
	RegisterTimer(cb func(eventtime float64) float64) interface{}
	UpdateTimer(handle interface{}, when float64)
}

// MCUClock is the per-microcontroller clock-synchronisation contract.
type MCUClock interface {
	EstimatedPrintTime(monotonic float64) float64
	FlushMoves(mcuFlushTime float64) error
	IsFileOutput() bool
	CheckActive(printTime, eventtime float64) error
}

// TrapQueue is the step-compression queue contract; host/trapq.Queue is the
// concrete implementation.
type TrapQueue interface {
	Append(t, accelT, cruiseT, decelT float64, startPos, axesR [3]float64, startV, cruiseV, accel float64)
	SetPosition(t, x, y, z float64)
	FinalizeMoves(flushTime float64)
}

// Kinematics is the solver contract: Cartesian, CoreXY, delta, etc. all
// satisfy this without the toolhead knowing which.
type Kinematics interface {
	CheckMove(m *motion.Move) error
	SetPosition(newpos motion.Vector4, homingAxes []int) error
	GetSteppers() []StepperRail
	CalcPosition(stepperPositions []float64) ([3]float64, error)
	GetStatus(eventtime float64) map[string]interface{}
}

// Extruder is the pressure-advance-model contract; PrinterExtruder is the
// pressure-advance-free implementation this module ships.
type Extruder interface {
	CheckMove(m *motion.Move) error
	CalcJunction(prev, cur *motion.Move) float64
	Move(printTime float64, m *motion.Move) error
	UpdateMoveTime(flushTime float64)
	GetName() string
	GetTrapQueue() TrapQueue
}

// StepperRail is the contract the virtual-toolhead adapter drives during
// auxiliary-axis homing.
type StepperRail interface {
	GetEndstops() []Endstop
	GetHomingInfo() HomingInfo
	GetRange() (min, max float64)
	GetCommandedPosition() float64
	SetPosition(pos [3]float64)
	GetName() string
}

// Endstop pairs an MCU-side endstop handle with the name the homing driver
// reports it under.
type Endstop struct {
	Name   string
	Handle interface{}
}

// HomingInfo is the per-rail configuration the homing driver needs.
type HomingInfo struct {
	Speed           float64
	PositionEndstop float64
	PositiveDir     bool
}

// HomingDriver is the external collaborator that drives a homing sequence
// over a ToolheadLike; out of scope to implement fully, named here so
// ExtruderHomer's contract is concrete.
type HomingDriver interface {
	ManualHome(th ToolheadLike, endstops []Endstop, pos motion.Vector4, speed float64, triggered, checkTriggered bool) error
}

// ToolheadLike is the capability set the homing driver depends on; both
// ToolHead and ExtruderHomer implement it.
type ToolheadLike interface {
	FlushStepGeneration()
	GetLastMoveTime() float64
	Dwell(delay float64)
	DripMove(newpos motion.Vector4, speed float64, completion Completion) error
	GetPosition() motion.Vector4
	SetPosition(newpos motion.Vector4, homingAxes []int) error
	GetKinematics() Kinematics
	GetSteppers() []StepperRail
	CalcPosition(stepperPositions []float64) ([3]float64, error)
}

// Completion is the drip-mode cancellation signal contract.
type Completion interface {
	Test() bool
	Wait(deadline float64) bool
}
