// Package gcode wires the tinygo-safe standalone/gcode.Interpreter to the
// host toolhead, implementing the ToolheadPlanner capability set behind
// G4/M400/M204 and the SET_VELOCITY_LIMIT/HOME_EXTRUDER word commands.
package gcode

import (
	"fmt"

	"gopper/host/toolhead"
	"gopper/motion"
	"gopper/standalone"
)

// ToolheadPlanner adapts one host/toolhead.ToolHead, plus the named
// ExtruderHomer instances configured for it, to
// standalone/gcode.ToolheadPlanner.
type ToolheadPlanner struct {
	th      *toolhead.ToolHead
	homers  map[string]*toolhead.ExtruderHomer
	drivers map[string]toolhead.HomingDriver
}

// NewToolheadPlanner binds the interpreter-facing adapter to a toolhead.
// Homing drivers for HOME_EXTRUDER are added per extruder through
// RegisterExtruderHomer.
func NewToolheadPlanner(th *toolhead.ToolHead) *ToolheadPlanner {
	return &ToolheadPlanner{
		th:      th,
		homers:  make(map[string]*toolhead.ExtruderHomer),
		drivers: make(map[string]toolhead.HomingDriver),
	}
}

// RegisterExtruderHomer makes HOME_EXTRUDER EXTRUDER=<name> route to homer,
// driven by driver when invoked.
func (p *ToolheadPlanner) RegisterExtruderHomer(name string, homer *toolhead.ExtruderHomer, driver toolhead.HomingDriver) {
	p.homers[name] = homer
	p.drivers[name] = driver
}

// Dwell implements G4.
func (p *ToolheadPlanner) Dwell(seconds float64) {
	p.th.CmdDwell(seconds)
}

// WaitMoves implements M400.
func (p *ToolheadPlanner) WaitMoves() {
	p.th.CmdWaitMoves()
}

// SetVelocityLimit implements SET_VELOCITY_LIMIT, reordering arguments into
// CmdSetVelocityLimit's (velocity, accel, square_corner_velocity,
// accel_to_decel) parameter order.
func (p *ToolheadPlanner) SetVelocityLimit(velocity, accel, accelToDecel, squareCornerVelocity *float64) string {
	return p.th.CmdSetVelocityLimit(velocity, accel, squareCornerVelocity, accelToDecel)
}

// SetAccel implements M204.
func (p *ToolheadPlanner) SetAccel(s, pAccel, t *float64) bool {
	return p.th.CmdSetAccel(s, pAccel, t)
}

// HomeExtruder implements HOME_EXTRUDER EXTRUDER=<name>.
func (p *ToolheadPlanner) HomeExtruder(name string) error {
	homer, ok := p.homers[name]
	if !ok {
		return fmt.Errorf("gcode: no extruder_home configured for %q", name)
	}
	driver := p.drivers[name]
	return homer.Home(driver)
}

// MoveQueuePlanner adapts a host/toolhead.ToolHead to
// standalone/gcode.Planner, so G0/G1/G28/G92 flow through the same
// look-ahead queue as HOME_EXTRUDER and the other toolhead word commands
// instead of a separate move path.
type MoveQueuePlanner struct {
	th *toolhead.ToolHead
}

// NewMoveQueuePlanner wraps th for standalone/gcode.Interpreter's Planner
// dependency.
func NewMoveQueuePlanner(th *toolhead.ToolHead) *MoveQueuePlanner {
	return &MoveQueuePlanner{th: th}
}

// QueueMove implements standalone/gcode.Planner's G0/G1 path.
func (p *MoveQueuePlanner) QueueMove(move *standalone.Move) error {
	newpos := motion.Vector4{move.End.X, move.End.Y, move.End.Z, move.End.E}
	return p.th.Move(newpos, move.Velocity)
}

// GetCurrentPosition implements standalone/gcode.Planner.
func (p *MoveQueuePlanner) GetCurrentPosition() standalone.Position {
	pos := p.th.GetPosition()
	return standalone.Position{X: pos[0], Y: pos[1], Z: pos[2], E: pos[3]}
}

// SetPosition implements standalone/gcode.Planner's G92 path, homing no
// axes (a bare coordinate reset, not a homing move).
func (p *MoveQueuePlanner) SetPosition(pos standalone.Position) {
	newpos := motion.Vector4{pos.X, pos.Y, pos.Z, pos.E}
	_ = p.th.SetPosition(newpos, nil)
}

// ClearQueue implements standalone/gcode.Planner; the toolhead's own
// look-ahead queue has no separate clear operation distinct from flushing
// it, which WaitMoves already does.
func (p *MoveQueuePlanner) ClearQueue() {
	p.th.CmdWaitMoves()
}
