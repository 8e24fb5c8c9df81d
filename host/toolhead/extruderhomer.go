package toolhead

import (
	"fmt"

	"gopper/motion"
)

// HaltPositionPolicy resolves the open question of what extruder position
// a homing move's SetPosition should report: the original source hard-codes
// zero after hitting a second-move artefact it never root-caused; this
// policy makes that workaround explicit and opt-out-able.
type HaltPositionPolicy int

const (
	// HaltPositionZero always reports the post-homing extruder position as
	// 0, matching the original's workaround. Default.
	HaltPositionZero HaltPositionPolicy = iota
	// HaltPositionComputed reports the actual halt position the homing
	// move computed, for rails verified not to exhibit the artefact.
	HaltPositionComputed
)

// ExtruderHomer is the virtual-toolhead adapter that lets a homing driver
// treat a single auxiliary extruder rail as if it were a whole toolhead,
// grounded on the original source's ExtruderHoming class.
type ExtruderHomer struct {
	th       ToolheadLike
	rail     StepperRail
	extruder Extruder
	haltMode HaltPositionPolicy

	origPos motion.Vector4
}

// NewExtruderHomer binds the adapter to the real toolhead, the extruder
// rail being homed, and the extruder owning that rail's trapq.
func NewExtruderHomer(th ToolheadLike, rail StepperRail, extruder Extruder, haltMode HaltPositionPolicy) *ExtruderHomer {
	return &ExtruderHomer{th: th, rail: rail, extruder: extruder, haltMode: haltMode}
}

// movePos estimates the homing move's target extruder coordinate: 1.5x
// past the configured endstop position, away from the travel direction,
// matching _home_axis's overshoot-then-retract distance estimate.
func (h *ExtruderHomer) movePos() float64 {
	info := h.rail.GetHomingInfo()
	min, max := h.rail.GetRange()
	pos := info.PositionEndstop
	if info.PositiveDir {
		pos -= 1.5 * (info.PositionEndstop - min)
	} else {
		pos += 1.5 * (max - info.PositionEndstop)
	}
	return pos
}

// Home runs the homing sequence through driver, passing itself as the
// virtual toolhead so the driver's drip moves land on this rail only.
func (h *ExtruderHomer) Home(driver HomingDriver) error {
	h.origPos = h.th.GetPosition()
	info := h.rail.GetHomingInfo()
	target := motion.Vector4{h.origPos[0], h.origPos[1], h.origPos[2], h.movePos()}

	if err := driver.ManualHome(h, h.rail.GetEndstops(), target, info.Speed, true, true); err != nil {
		return &HomingFailureError{Rail: h.rail.GetName(), Err: err}
	}
	return nil
}

// ToolheadLike (virtual toolhead methods).

// FlushStepGeneration delegates to the real toolhead; the extruder stepper
// is part of it, so there is nothing rail-local to flush.
func (h *ExtruderHomer) FlushStepGeneration() {
	h.th.FlushStepGeneration()
}

// GetLastMoveTime delegates to the real toolhead's print_time resync.
func (h *ExtruderHomer) GetLastMoveTime() float64 {
	return h.th.GetLastMoveTime()
}

// Dwell delegates to the real toolhead.
func (h *ExtruderHomer) Dwell(delay float64) {
	h.th.Dwell(delay)
}

// DripMove delegates to the real toolhead's drip mode; the target vector's
// xyz components are the frozen original position, only e moves.
func (h *ExtruderHomer) DripMove(newpos motion.Vector4, speed float64, completion Completion) error {
	return h.th.DripMove(newpos, speed, completion)
}

// GetPosition reports the frozen xyz plus the rail's own commanded e
// position, never the real toolhead's live commanded_pos.
func (h *ExtruderHomer) GetPosition() motion.Vector4 {
	e := h.rail.GetCommandedPosition()
	return motion.Vector4{h.origPos[0], h.origPos[1], h.origPos[2], e}
}

// SetPosition re-anchors the extruder's trapq and rail after homing
// completes. The reported e halt position follows HaltPositionPolicy.
func (h *ExtruderHomer) SetPosition(newpos motion.Vector4, homingAxes []int) error {
	e := 0.0
	if h.haltMode == HaltPositionComputed {
		e = newpos[0]
	}

	h.th.FlushStepGeneration()
	printTime := h.th.GetLastMoveTime()
	h.extruder.GetTrapQueue().SetPosition(printTime, e, 0, 0)
	h.rail.SetPosition([3]float64{e, 0, 0})

	pos := motion.Vector4{h.origPos[0], h.origPos[1], h.origPos[2], e}
	return h.th.SetPosition(pos, homingAxes)
}

// GetKinematics returns itself: the adapter also satisfies the Kinematics
// contract for its one rail.
func (h *ExtruderHomer) GetKinematics() Kinematics {
	return h
}

// GetSteppers returns the single rail being homed, satisfying both
// ToolheadLike and Kinematics.
func (h *ExtruderHomer) GetSteppers() []StepperRail {
	return []StepperRail{h.rail}
}

// CalcPosition maps the rail's measured stepper position back to a 3-tuple,
// satisfying both ToolheadLike and Kinematics.
func (h *ExtruderHomer) CalcPosition(stepperPositions []float64) ([3]float64, error) {
	if len(stepperPositions) == 0 {
		return [3]float64{}, fmt.Errorf("extruderhomer: no stepper position reported for %s", h.rail.GetName())
	}
	return [3]float64{stepperPositions[0], 0, 0}, nil
}

// Kinematics (remaining methods, unused by the homing driver but required
// to satisfy the contract GetKinematics hands out).

// CheckMove is a no-op: every move the homing driver issues through this
// adapter is internally generated and already bounded by movePos/GetRange.
func (h *ExtruderHomer) CheckMove(m *motion.Move) error {
	return nil
}

// GetStatus reports nothing; the adapter is not a real kinematics object
// and is never queried for printer status.
func (h *ExtruderHomer) GetStatus(eventtime float64) map[string]interface{} {
	return map[string]interface{}{}
}
