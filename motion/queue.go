package motion

// LookaheadFlushTime mirrors the source planner's LOOKAHEAD_FLUSH_TIME: the
// residual-time budget (seconds) before a lazy flush is forced.
const LookaheadFlushTime = 0.250

// deferredMove is one entry of the backward pass's delayed list: a move
// whose junction hasn't been finalized yet because the peak-cruise window
// it falls in is still open.
type deferredMove struct {
	move      *Move
	startV2   float64
	nextEndV2 float64
}

// MoveQueue is the look-ahead buffer of pending moves: it runs the backward
// pass that sizes safe junction velocities before handing a ready prefix to
// the toolhead.
type MoveQueue struct {
	queue         []*Move
	junctionFlush float64
}

// NewMoveQueue returns an empty queue with a fresh lookahead budget.
func NewMoveQueue() *MoveQueue {
	return &MoveQueue{junctionFlush: LookaheadFlushTime}
}

// Reset discards all pending moves, used on drip-mode cancellation.
func (q *MoveQueue) Reset() {
	q.queue = nil
	q.junctionFlush = LookaheadFlushTime
}

// Len reports how many moves are currently pending.
func (q *MoveQueue) Len() int { return len(q.queue) }

// SetFlushTime overrides the residual lookahead budget, used when the
// toolhead wants the queue to hold a full buffer_time_high worth of moves
// before forcing a lazy flush (e.g. right after a non-lazy flush).
func (q *MoveQueue) SetFlushTime(flushTime float64) {
	q.junctionFlush = flushTime
}

// GetLast returns the most recently queued move, or nil if the queue is
// empty, used to append a timing callback to the tail of the queue.
func (q *MoveQueue) GetLast() *Move {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[len(q.queue)-1]
}

// AddMove appends m, junction-plans it against the previous move, and
// triggers a lazy flush once the lookahead budget is exhausted. flush is
// invoked with the ready prefix when a flush fires.
func (q *MoveQueue) AddMove(m *Move, extruderV2 func(prev, cur *Move) float64, flush func(ready []*Move)) {
	q.queue = append(q.queue, m)
	if len(q.queue) == 1 {
		return
	}

	prev := q.queue[len(q.queue)-2]
	ev2 := infiniteAccel * infiniteAccel
	if extruderV2 != nil {
		ev2 = extruderV2(prev, m)
	}
	m.CalcJunction(prev, ev2)

	q.junctionFlush -= m.MinMoveT()
	if q.junctionFlush <= 0 {
		q.Flush(true, flush)
	}
}

func min2(a, b float64) float64 {
	if b < a {
		return b
	}
	return a
}

func min3(a, b, c float64) float64 {
	return min2(min2(a, b), c)
}

// Flush runs the backward pass over the queue. When lazy is true, only a
// prefix determined by the peak-cruise window closes out; the rest stays
// queued. Ready moves are passed to flushFn and then dropped from the queue.
func (q *MoveQueue) Flush(lazy bool, flushFn func(ready []*Move)) {
	q.junctionFlush = LookaheadFlushTime

	queue := q.queue
	flushCount := len(queue)
	updateFlushCount := lazy

	var delayed []deferredMove
	var nextEndV2, nextSmoothedV2, peakCruiseV2 float64

	for i := flushCount - 1; i >= 0; i-- {
		m := queue[i]

		reachableStartV2 := nextEndV2 + m.DeltaV2
		startV2 := min2(m.MaxStartV2, reachableStartV2)

		reachableSmoothedV2 := nextSmoothedV2 + m.SmoothDeltaV2
		smoothedV2 := min2(m.MaxSmoothedV2, reachableSmoothedV2)

		if smoothedV2 < reachableSmoothedV2 {
			if smoothedV2+m.SmoothDeltaV2 > nextSmoothedV2 || len(delayed) > 0 {
				if updateFlushCount && peakCruiseV2 != 0 {
					flushCount = i
					updateFlushCount = false
				}
				peakCruiseV2 = min2(m.MaxCruiseV2, (smoothedV2+reachableSmoothedV2)*0.5)

				if len(delayed) > 0 {
					if !updateFlushCount && i < flushCount {
						mcV2 := peakCruiseV2
						for j := len(delayed) - 1; j >= 0; j-- {
							d := delayed[j]
							mcV2 = min2(mcV2, d.startV2)
							d.move.SetJunction(min2(d.startV2, mcV2), mcV2, min2(d.nextEndV2, mcV2))
						}
					}
					delayed = delayed[:0]
				}
			}

			if !updateFlushCount && i < flushCount {
				cruiseV2 := min3((startV2+reachableStartV2)*0.5, m.MaxCruiseV2, peakCruiseV2)
				m.SetJunction(min2(startV2, cruiseV2), cruiseV2, min2(nextEndV2, cruiseV2))
			}
		} else {
			delayed = append(delayed, deferredMove{move: m, startV2: startV2, nextEndV2: nextEndV2})
		}

		nextEndV2 = startV2
		nextSmoothedV2 = smoothedV2
	}

	if updateFlushCount || flushCount == 0 {
		return
	}

	ready := queue[:flushCount]
	q.queue = append([]*Move{}, queue[flushCount:]...)

	if flushFn != nil {
		flushFn(ready)
	}
}
