package toolhead

import "errors"

// ErrShutdown is returned by ToolHead.Move, SetPosition and DripMove when
// called after the printer has entered the shutdown state (MCU fault,
// emergency stop).
// Callers test for it with errors.Is rather than a type switch.
var ErrShutdown = errors.New("toolhead: printer is shut down")

// OutOfRangeError reports a move whose target falls outside an axis's
// configured position_min/position_max.
type OutOfRangeError struct {
	Axis     string
	Value    float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return "toolhead: " + e.Axis + " out of range"
}

// HomingFailureError wraps the underlying cause of a failed homing move
// (endstop never triggered, endstop triggered too early, timeout).
type HomingFailureError struct {
	Rail string
	Err  error
}

func (e *HomingFailureError) Error() string {
	return "toolhead: homing failed on " + e.Rail + ": " + e.Err.Error()
}

func (e *HomingFailureError) Unwrap() error {
	return e.Err
}

// FlushHandlerFailure wraps an error raised by a callback during move
// processing; the toolhead produces it only for a failed extruder Move. The toolhead
// cannot recover from this mid-flush; it surfaces the error and relies on
// the caller to shut the printer down.
type FlushHandlerFailure struct {
	Handler string
	Err     error
}

func (e *FlushHandlerFailure) Error() string {
	return "toolhead: flush handler " + e.Handler + " failed: " + e.Err.Error()
}

func (e *FlushHandlerFailure) Unwrap() error {
	return e.Err
}
