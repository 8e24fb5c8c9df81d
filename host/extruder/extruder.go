// Package extruder implements the host toolhead's Extruder contract: a
// pressure-advance-free single-axis stepper driven by the E component of
// every queued move, owning its own trapq the way extruder_home.py's
// self.extruder.get_trapq() expects to find one.
package extruder

import (
	"math"

	"gopper/host/toolhead"
	"gopper/host/trapq"
	"gopper/motion"
)

// PrinterExtruder is the pressure-advance-free extruder: its only move check
// is CheckMove's extrude-only distance guard, and it never imposes a
// junction-velocity ceiling
// (CalcJunction always returns the largest representable value), matching
// the unbounded-cornering behaviour of a plain pressure-advance-free
// DummyExtruder stand-in.
type PrinterExtruder struct {
	name       string
	trapq      *trapq.Queue
	maxExtrude float64
}

// New builds a named extruder instance. maxExtrudeOnlyDistance bounds how
// far a single extrude-only move (no XYZ component) may travel, the same
// guard Klipper's extruder config enforces to catch a runaway retraction.
func New(name string, maxExtrudeOnlyDistance float64) *PrinterExtruder {
	return &PrinterExtruder{name: name, trapq: trapq.New(), maxExtrude: maxExtrudeOnlyDistance}
}

// CheckMove rejects an extrude-only move that travels further than the
// configured max_extrude_only_distance.
func (e *PrinterExtruder) CheckMove(m *motion.Move) error {
	if m.IsKinematicMove {
		return nil
	}
	if e.maxExtrude > 0 && math.Abs(m.AxesD[3]) > e.maxExtrude {
		return &toolhead.OutOfRangeError{Axis: "e", Value: m.AxesD[3], Min: -e.maxExtrude, Max: e.maxExtrude}
	}
	return nil
}

// CalcJunction imposes no extruder-side junction limit: pressure-advance
// models derive a ceiling from acceleration compensation, this extruder has
// none, so every junction is as fast as the cartesian move itself allows.
func (e *PrinterExtruder) CalcJunction(prev, cur *motion.Move) float64 {
	return math.MaxFloat64
}

// Move appends the move's E-axis segment into the extruder's own trapq at
// the given print_time, mirroring PrinterExtruder.move in the original
// source.
func (e *PrinterExtruder) Move(printTime float64, m *motion.Move) error {
	startPos := [3]float64{m.StartPos[3], 0, 0}
	axesR := [3]float64{1, 0, 0}
	e.trapq.Append(printTime, m.AccelT, m.CruiseT, m.DecelT, startPos, axesR, m.StartV, m.CruiseV, m.Accel)
	return nil
}

// UpdateMoveTime expires extruder trapq segments up to flushTime, mirroring
// the toolhead's per-extruder flush fan-out in _update_move_time.
func (e *PrinterExtruder) UpdateMoveTime(flushTime float64) {
	e.trapq.FinalizeMoves(flushTime)
}

// GetName reports the extruder's config-section name, e.g. "extruder".
func (e *PrinterExtruder) GetName() string {
	return e.name
}

// GetTrapQueue exposes the extruder's own trapq, the object extruder_home.py
// reaches for via extruder.get_trapq() to re-anchor e position after homing.
func (e *PrinterExtruder) GetTrapQueue() toolhead.TrapQueue {
	return e.trapq
}
