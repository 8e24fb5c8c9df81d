// Package railstepper implements the host toolhead's StepperRail contract:
// one MCU-driven axis with an endstop, homing parameters, and a commanded
// position, grounded on core/endstop.go's Endstop/TriggerSync bookkeeping
// and the rail accessors extruder_home.py drives (get_endstops,
// get_homing_info, get_range, get_commanded_position).
package railstepper

import (
	"gopper/host/toolhead"
)

// Config holds one rail's homing and travel-range parameters, the host-side
// analogue of the printer.cfg [extruder]/[stepper_*] options a PrinterRail
// loads at config time.
type Config struct {
	Name            string
	Speed           float64
	PositionEndstop float64
	PositiveDir     bool
	PositionMin     float64
	PositionMax     float64
}

// Rail is one stepper axis plus its endstop handles and live commanded
// position, driven by homing code through the host StepperRail contract.
type Rail struct {
	cfg       Config
	endstops  []toolhead.Endstop
	commanded float64
}

// New binds a rail's static config to the MCU-side endstop handles
// registered for it.
func New(cfg Config, endstops []toolhead.Endstop) *Rail {
	return &Rail{cfg: cfg, endstops: endstops}
}

// GetEndstops reports the MCU endstop handles driving homing for this rail.
func (r *Rail) GetEndstops() []toolhead.Endstop {
	return r.endstops
}

// GetHomingInfo reports the homing speed, expected trigger position, and
// direction of travel configured for this rail.
func (r *Rail) GetHomingInfo() toolhead.HomingInfo {
	return toolhead.HomingInfo{
		Speed:           r.cfg.Speed,
		PositionEndstop: r.cfg.PositionEndstop,
		PositiveDir:     r.cfg.PositiveDir,
	}
}

// GetRange reports the rail's configured position_min/position_max, used
// by the virtual toolhead's overshoot estimate.
func (r *Rail) GetRange() (min, max float64) {
	return r.cfg.PositionMin, r.cfg.PositionMax
}

// GetCommandedPosition reports the rail's last-known position as driven by
// the step compressor, independent of the toolhead's commanded_pos.
func (r *Rail) GetCommandedPosition() float64 {
	return r.commanded
}

// SetPosition re-anchors the rail's commanded position, e.g. after a homing
// move completes and the axis's zero is redefined. Only the first
// coordinate is meaningful for a single-axis rail; the other two exist to
// satisfy the shared StepperRail signature used by multi-axis kinematics.
func (r *Rail) SetPosition(pos [3]float64) {
	r.commanded = pos[0]
}

// GetName reports the rail's config-section name, e.g. "extruder" or
// "stepper_x".
func (r *Rail) GetName() string {
	return r.cfg.Name
}
