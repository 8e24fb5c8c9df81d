// Package kinematics adapts the standalone Cartesian solver to the host
// toolhead's Kinematics contract: coordinate limit checks and the stepper
// position mapping stay in standalone/kinematics, only the adapter layer
// (rails, status, set_position bookkeeping) is host-specific.
package kinematics

import (
	"fmt"

	"gopper/host/toolhead"
	"gopper/motion"
	"gopper/standalone"
	skinematics "gopper/standalone/kinematics"
)

// CartesianAdapter wraps standalone/kinematics.Cartesian behind the host
// Kinematics contract, translating motion.Move/Vector4 into the
// standalone.Position shape CheckLimits and CalcPosition expect.
type CartesianAdapter struct {
	solver *skinematics.Cartesian
	rails  []toolhead.StepperRail
}

// NewCartesianAdapter builds the adapter from a machine config (reused
// as-is for axis limits) and the concrete rails this printer wires up, in
// X, Y, Z, E order matching GetAxisNames.
func NewCartesianAdapter(config *standalone.MachineConfig, rails []toolhead.StepperRail) (*CartesianAdapter, error) {
	solver, err := skinematics.NewCartesian(config)
	if err != nil {
		return nil, fmt.Errorf("kinematics: %w", err)
	}
	return &CartesianAdapter{solver: solver, rails: rails}, nil
}

func toPosition(v motion.Vector4) standalone.Position {
	return standalone.Position{X: v[0], Y: v[1], Z: v[2], E: v[3]}
}

// CheckMove validates a planned move's end position against the configured
// axis limits before it is ever queued.
func (a *CartesianAdapter) CheckMove(m *motion.Move) error {
	return a.solver.CheckLimits(toPosition(m.EndPos))
}

// SetPosition re-anchors the adapter's notion of position; Cartesian
// kinematics carries no internal state of its own, the coordinates live in
// the toolhead's commanded_pos, so this only re-validates newpos against the
// limits of every axis; homingAxes is not consulted.
func (a *CartesianAdapter) SetPosition(newpos motion.Vector4, homingAxes []int) error {
	return a.solver.CheckLimits(toPosition(newpos))
}

// GetSteppers reports the rails backing this kinematics, in the same order
// CalcPosition expects stepper_positions to arrive in.
func (a *CartesianAdapter) GetSteppers() []toolhead.StepperRail {
	return a.rails
}

// CalcPosition converts XYZE stepper positions back to machine coordinates
// via the wrapped solver's 1:1 mapping, then drops the unused E slot for
// the 3-tuple the Kinematics contract returns (the toolhead tracks E
// through the extruder, not through kinematics).
func (a *CartesianAdapter) CalcPosition(stepperPositions []float64) ([3]float64, error) {
	if len(stepperPositions) < 3 {
		return [3]float64{}, fmt.Errorf("kinematics: need at least 3 stepper positions, got %d", len(stepperPositions))
	}
	pos := standalone.Position{X: stepperPositions[0], Y: stepperPositions[1], Z: stepperPositions[2]}
	if len(stepperPositions) > 3 {
		pos.E = stepperPositions[3]
	}
	out, err := a.solver.CalcPosition(pos)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{out[0], out[1], out[2]}, nil
}

// GetStatus reports the axis names this kinematics drives; Cartesian has no
// further runtime state worth surfacing.
func (a *CartesianAdapter) GetStatus(eventtime float64) map[string]interface{} {
	return map[string]interface{}{
		"axes": a.solver.GetAxisNames(),
	}
}
