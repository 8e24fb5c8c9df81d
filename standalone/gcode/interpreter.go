package gcode

import (
	"gopper/standalone"
)

// Interpreter executes G-code commands
type Interpreter struct {
	state    *standalone.MachineState
	config   *standalone.MachineConfig
	planner  Planner // Interface to motion planner

	toolhead ToolheadPlanner // optional: set on the host build only
}

// Planner interface for motion planning
type Planner interface {
	QueueMove(move *standalone.Move) error
	GetCurrentPosition() standalone.Position
	SetPosition(pos standalone.Position)
	ClearQueue()
}

// ToolheadPlanner is the host-only capability set behind G4/M400/M204 and
// the SET_VELOCITY_LIMIT/HOME_EXTRUDER word commands. It is deliberately
// expressed with only primitive types so this package stays importable by
// the tinygo-compiled standalone targets; nothing here reaches into
// gopper/host. A standalone build leaves it nil and those commands become
// inert, the same way M104/M109's temperature wait is a TODO there.
type ToolheadPlanner interface {
	// Dwell pauses print_time by the given number of seconds (G4).
	Dwell(seconds float64)
	// WaitMoves blocks until every queued move has been sent to the MCU,
	// and the position/velocity queues have drained (M400).
	WaitMoves()
	// SetVelocityLimit updates any of max_velocity/max_accel/
	// max_accel_to_decel/square_corner_velocity that is non-nil, and
	// returns a human-readable status string (SET_VELOCITY_LIMIT).
	SetVelocityLimit(velocity, accel, accelToDecel, squareCornerVelocity *float64) string
	// SetAccel implements M204's S or P+T accel/accel-to-decel update,
	// returning false if neither form of argument was satisfied.
	SetAccel(s, p, t *float64) bool
	// HomeExtruder runs ExtruderHomer.Home for the named extruder
	// (HOME_EXTRUDER EXTRUDER=<name>).
	HomeExtruder(name string) error
}

// NewInterpreter creates a new G-code interpreter
func NewInterpreter(config *standalone.MachineConfig, planner Planner) *Interpreter {
	return &Interpreter{
		state: &standalone.MachineState{
			Position:     standalone.Position{},
			Homed:        [4]bool{false, false, false, false},
			AbsoluteMode: true,
			FeedRate:     config.DefaultVelocity,
			ExtrudeMode:  false, // Absolute extrusion by default
			Temperature:  make(map[string]float64),
			TargetTemp:   make(map[string]float64),
		},
		config:  config,
		planner: planner,
	}
}

// SetToolheadPlanner wires the host toolhead in; call it once after
// NewInterpreter on the host build. Standalone/tinygo targets never call
// this, leaving toolhead nil.
func (interp *Interpreter) SetToolheadPlanner(tp ToolheadPlanner) {
	interp.toolhead = tp
}

// Execute executes a parsed G-code command
func (interp *Interpreter) Execute(cmd *standalone.GCodeCommand) error {
	if cmd == nil {
		return nil
	}

	if cmd.Name != "" {
		return interp.executeNamed(cmd)
	}

	switch cmd.Type {
	case 'G':
		return interp.executeG(cmd)
	case 'M':
		return interp.executeM(cmd)
	case 'T':
		return interp.executeT(cmd)
	}

	return nil
}

// executeG handles G-codes
func (interp *Interpreter) executeG(cmd *standalone.GCodeCommand) error {
	switch cmd.Number {
	case 0, 1: // G0/G1 - Linear move
		return interp.doMove(cmd)
	case 28: // G28 - Home
		return interp.doHome(cmd)
	case 4: // G4 - Dwell
		return interp.doDwell(cmd)
	case 90: // G90 - Absolute positioning
		interp.state.AbsoluteMode = true
	case 91: // G91 - Relative positioning
		interp.state.AbsoluteMode = false
	case 92: // G92 - Set position
		return interp.doSetPosition(cmd)
	}

	return nil
}

// doDwell pauses for the P (milliseconds) or S (seconds) parameter given.
// On a standalone build with no toolhead wired in, G4 is a no-op: there is
// no print_time to advance outside the host toolhead's state machine.
func (interp *Interpreter) doDwell(cmd *standalone.GCodeCommand) error {
	if interp.toolhead == nil {
		return nil
	}
	seconds := cmd.GetParameter('S', 0)
	if cmd.HasParameter('P') {
		seconds = cmd.GetParameter('P', 0) / 1000.0
	}
	interp.toolhead.Dwell(seconds)
	return nil
}

// executeM handles M-codes
func (interp *Interpreter) executeM(cmd *standalone.GCodeCommand) error {
	switch cmd.Number {
	case 82: // M82 - Absolute extrusion
		interp.state.ExtrudeMode = false
	case 83: // M83 - Relative extrusion
		interp.state.ExtrudeMode = true
	case 104: // M104 - Set extruder temperature
		if cmd.HasParameter('S') {
			temp := cmd.GetParameter('S', 0)
			interp.state.TargetTemp["extruder"] = temp
		}
	case 109: // M109 - Set extruder temperature and wait
		if cmd.HasParameter('S') {
			temp := cmd.GetParameter('S', 0)
			interp.state.TargetTemp["extruder"] = temp
			// TODO: Wait for temperature
		}
	case 140: // M140 - Set bed temperature
		if cmd.HasParameter('S') {
			temp := cmd.GetParameter('S', 0)
			interp.state.TargetTemp["bed"] = temp
		}
	case 190: // M190 - Set bed temperature and wait
		if cmd.HasParameter('S') {
			temp := cmd.GetParameter('S', 0)
			interp.state.TargetTemp["bed"] = temp
			// TODO: Wait for temperature
		}
	case 114: // M114 - Get current position
		// TODO: Report position
	case 105: // M105 - Get temperature
		// TODO: Report temperature
	case 204: // M204 - Set acceleration
		return interp.doSetAccel(cmd)
	case 400: // M400 - Wait for current moves to finish
		if interp.toolhead != nil {
			interp.toolhead.WaitMoves()
		}
	}

	return nil
}

// doSetAccel implements M204 Snnn or M204 Pnnn Tnnn, mirroring
// cmd_M204's S-overrides-both / P-and-T-both-required rule.
func (interp *Interpreter) doSetAccel(cmd *standalone.GCodeCommand) error {
	if interp.toolhead == nil {
		return nil
	}
	var s, p, t *float64
	if cmd.HasParameter('S') {
		v := cmd.GetParameter('S', 0)
		s = &v
	}
	if cmd.HasParameter('P') {
		v := cmd.GetParameter('P', 0)
		p = &v
	}
	if cmd.HasParameter('T') {
		v := cmd.GetParameter('T', 0)
		t = &v
	}
	interp.toolhead.SetAccel(s, p, t)
	return nil
}

// executeNamed dispatches a word command (SET_VELOCITY_LIMIT,
// HOME_EXTRUDER); both require a host toolhead and are no-ops without one.
func (interp *Interpreter) executeNamed(cmd *standalone.GCodeCommand) error {
	if interp.toolhead == nil {
		return nil
	}
	switch cmd.Name {
	case "SET_VELOCITY_LIMIT":
		var velocity, accel, accelToDecel, scv *float64
		if cmd.HasNamedParam("VELOCITY") {
			v := cmd.GetNamedParamFloat("VELOCITY", 0)
			velocity = &v
		}
		if cmd.HasNamedParam("ACCEL") {
			v := cmd.GetNamedParamFloat("ACCEL", 0)
			accel = &v
		}
		if cmd.HasNamedParam("ACCEL_TO_DECEL") {
			v := cmd.GetNamedParamFloat("ACCEL_TO_DECEL", 0)
			accelToDecel = &v
		}
		if cmd.HasNamedParam("SQUARE_CORNER_VELOCITY") {
			v := cmd.GetNamedParamFloat("SQUARE_CORNER_VELOCITY", 0)
			scv = &v
		}
		interp.toolhead.SetVelocityLimit(velocity, accel, accelToDecel, scv)
	case "HOME_EXTRUDER":
		name := cmd.GetNamedParamString("EXTRUDER", "extruder")
		return interp.toolhead.HomeExtruder(name)
	}
	return nil
}

// executeT handles tool changes
func (interp *Interpreter) executeT(cmd *standalone.GCodeCommand) error {
	// TODO: Implement tool change
	return nil
}

// doMove executes a linear move (G0/G1)
func (interp *Interpreter) doMove(cmd *standalone.GCodeCommand) error {
	// Get current position
	current := interp.planner.GetCurrentPosition()
	target := current

	// Update feedrate if specified
	if cmd.HasParameter('F') {
		interp.state.FeedRate = cmd.GetParameter('F', 0) / 60.0 // Convert mm/min to mm/s
	}

	// Calculate target position
	if interp.state.AbsoluteMode {
		// Absolute positioning
		if cmd.HasParameter('X') {
			target.X = cmd.GetParameter('X', current.X)
		}
		if cmd.HasParameter('Y') {
			target.Y = cmd.GetParameter('Y', current.Y)
		}
		if cmd.HasParameter('Z') {
			target.Z = cmd.GetParameter('Z', current.Z)
		}
	} else {
		// Relative positioning
		if cmd.HasParameter('X') {
			target.X = current.X + cmd.GetParameter('X', 0)
		}
		if cmd.HasParameter('Y') {
			target.Y = current.Y + cmd.GetParameter('Y', 0)
		}
		if cmd.HasParameter('Z') {
			target.Z = current.Z + cmd.GetParameter('Z', 0)
		}
	}

	// Handle extruder
	if cmd.HasParameter('E') {
		if interp.state.ExtrudeMode {
			// Relative extrusion
			target.E = current.E + cmd.GetParameter('E', 0)
		} else {
			// Absolute extrusion
			target.E = cmd.GetParameter('E', current.E)
		}
	}

	// Calculate distance
	dx := target.X - current.X
	dy := target.Y - current.Y
	dz := target.Z - current.Z
	de := target.E - current.E
	distance := sqrt(dx*dx + dy*dy + dz*dz)

	// Skip if no movement
	if distance < 0.001 && abs(de) < 0.001 {
		return nil
	}

	// Create move
	move := &standalone.Move{
		Start:    current,
		End:      target,
		Velocity: interp.state.FeedRate,
		Accel:    interp.config.DefaultAccel,
		Distance: distance,
	}

	// Queue move
	return interp.planner.QueueMove(move)
}

// doHome executes homing (G28)
func (interp *Interpreter) doHome(cmd *standalone.GCodeCommand) error {
	// TODO: Implement homing
	// For now, just mark axes as homed and set position to 0
	if !cmd.HasParameter('X') && !cmd.HasParameter('Y') && !cmd.HasParameter('Z') {
		// Home all axes
		interp.state.Homed = [4]bool{true, true, true, false}
		interp.planner.SetPosition(standalone.Position{X: 0, Y: 0, Z: 0, E: 0})
	} else {
		if cmd.HasParameter('X') {
			interp.state.Homed[0] = true
		}
		if cmd.HasParameter('Y') {
			interp.state.Homed[1] = true
		}
		if cmd.HasParameter('Z') {
			interp.state.Homed[2] = true
		}
	}

	return nil
}

// doSetPosition sets the current position (G92)
func (interp *Interpreter) doSetPosition(cmd *standalone.GCodeCommand) error {
	current := interp.planner.GetCurrentPosition()

	if cmd.HasParameter('X') {
		current.X = cmd.GetParameter('X', 0)
	}
	if cmd.HasParameter('Y') {
		current.Y = cmd.GetParameter('Y', 0)
	}
	if cmd.HasParameter('Z') {
		current.Z = cmd.GetParameter('Z', 0)
	}
	if cmd.HasParameter('E') {
		current.E = cmd.GetParameter('E', 0)
	}

	interp.planner.SetPosition(current)
	return nil
}

// GetState returns the current machine state
func (interp *Interpreter) GetState() *standalone.MachineState {
	return interp.state
}

// Simple math functions (to avoid importing math for embedded)
func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	// Newton's method for square root
	z := x
	for i := 0; i < 10; i++ {
		z = z - (z*z-x)/(2*z)
	}
	return z
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
