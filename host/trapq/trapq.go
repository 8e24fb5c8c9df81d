// Package trapq implements the in-memory trapezoid velocity queue each
// toolhead (and each extruder) owns: a time-ordered store of finalized
// trapezoid segments, consumed by step generators up to a flush horizon and
// expired once their contents can no longer change.
//
// Grounded on standalone/stepgen.Stepper's single-segment bookkeeping,
// generalized to a queue of segments instead of one in-flight move.
package trapq

import "math"

// Segment is one trapezoid phase queued for step generation: constant
// acceleration from StartV to (implicitly) CruiseV over AccelT seconds, a
// cruise at CruiseV for CruiseT seconds, and deceleration to EndV over
// DecelT seconds, starting at time T and position StartPos along direction
// AxesR.
type Segment struct {
	Time               float64
	AccelT, CruiseT, DecelT float64
	StartPos           [3]float64
	AxesR              [3]float64
	StartV, CruiseV    float64
	Accel              float64
}

// EndTime is the wall-clock instant this segment's motion completes.
func (s Segment) EndTime() float64 {
	return s.Time + s.AccelT + s.CruiseT + s.DecelT
}

// Queue is the concrete trapq implementation: an append-only, time-ordered
// segment log with finalize-based expiry.
type Queue struct {
	segments []Segment
	position [3]float64
	freeTime float64
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Append records one trapezoid segment, mirroring trapq_append's contract.
func (q *Queue) Append(t, accelT, cruiseT, decelT float64, startPos, axesR [3]float64, startV, cruiseV, accel float64) {
	q.segments = append(q.segments, Segment{
		Time: t, AccelT: accelT, CruiseT: cruiseT, DecelT: decelT,
		StartPos: startPos, AxesR: axesR, StartV: startV, CruiseV: cruiseV, Accel: accel,
	})
}

// SetPosition records an instantaneous position marker at time t, used by
// trapq_set_position to re-anchor the queue's coordinate frame (e.g. after
// homing or G92). It is modeled as a zero-duration segment.
func (q *Queue) SetPosition(t float64, x, y, z float64) {
	q.position = [3]float64{x, y, z}
	q.segments = append(q.segments, Segment{Time: t, StartPos: q.position})
}

// FinalizeMoves expires every segment whose EndTime is before flushTime,
// mirroring trapq_finalize_moves. Passing math.Inf(1) discards everything,
// the drip-cancellation path.
func (q *Queue) FinalizeMoves(flushTime float64) {
	q.freeTime = flushTime
	if math.IsInf(flushTime, 1) {
		q.segments = nil
		return
	}
	i := 0
	for i < len(q.segments) && q.segments[i].EndTime() < flushTime {
		i++
	}
	q.segments = q.segments[i:]
}

// Pending returns the segments not yet finalized, in time order.
func (q *Queue) Pending() []Segment {
	return q.segments
}

// FreeTime is the horizon up to which segments have been finalized/expired.
func (q *Queue) FreeTime() float64 {
	return q.freeTime
}
