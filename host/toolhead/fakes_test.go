package toolhead

import (
	"gopper/motion"
)

// fakeReactor is a deterministic stand-in for host/reactor.Reactor: time
// only advances through advance() or Pause (which jumps straight to its
// deadline), so tests get reproducible
// print_time/est_print_time relationships without real sleeps.
type fakeReactor struct {
	now     float64
	timers  []func(eventtime float64) float64
	pauses  int
}

func newFakeReactor() *fakeReactor { return &fakeReactor{} }

func (r *fakeReactor) Monotonic() float64 { return r.now }

func (r *fakeReactor) Pause(deadline float64) float64 {
	r.pauses++
	if deadline > r.now {
		r.now = deadline
	}
	return r.now
}

func (r *fakeReactor) RegisterTimer(cb func(eventtime float64) float64) interface{} {
	r.timers = append(r.timers, cb)
	return len(r.timers) - 1
}

func (r *fakeReactor) UpdateTimer(handle interface{}, when float64) {}

func (r *fakeReactor) advance(dt float64) { r.now += dt }

// fakeCompletion is a manually-triggerable Completion.
type fakeCompletion struct {
	done bool
}

func (c *fakeCompletion) Test() bool             { return c.done }
func (c *fakeCompletion) Wait(deadline float64) bool { return c.done }
func (c *fakeCompletion) trigger()               { c.done = true }

// fakeMCU is a deterministic MCUClock: estimated_print_time simply tracks
// monotonic time with a fixed offset, like a perfectly synced clock.
type fakeMCU struct {
	fileOutput bool
	flushed    []float64
}

func (m *fakeMCU) EstimatedPrintTime(monotonic float64) float64 { return monotonic }
func (m *fakeMCU) FlushMoves(mcuFlushTime float64) error {
	m.flushed = append(m.flushed, mcuFlushTime)
	return nil
}
func (m *fakeMCU) IsFileOutput() bool                                 { return m.fileOutput }
func (m *fakeMCU) CheckActive(printTime, eventtime float64) error { return nil }

// fakeTrapQueue records Append/SetPosition/FinalizeMoves calls.
type fakeTrapQueue struct {
	appends    int
	finalized  []float64
	lastSetPos [3]float64
}

func (q *fakeTrapQueue) Append(t, accelT, cruiseT, decelT float64, startPos, axesR [3]float64, startV, cruiseV, accel float64) {
	q.appends++
}
func (q *fakeTrapQueue) SetPosition(t, x, y, z float64) { q.lastSetPos = [3]float64{x, y, z} }
func (q *fakeTrapQueue) FinalizeMoves(flushTime float64) {
	q.finalized = append(q.finalized, flushTime)
}

// fakeKinematics accepts every move unless checkErr is set, and reports no
// steppers.
type fakeKinematics struct {
	checkErr error
}

func (k *fakeKinematics) CheckMove(m *motion.Move) error                          { return k.checkErr }
func (k *fakeKinematics) SetPosition(newpos motion.Vector4, homingAxes []int) error { return nil }
func (k *fakeKinematics) GetSteppers() []StepperRail                              { return nil }
func (k *fakeKinematics) CalcPosition(stepperPositions []float64) ([3]float64, error) {
	return [3]float64{}, nil
}
func (k *fakeKinematics) GetStatus(eventtime float64) map[string]interface{} {
	return map[string]interface{}{}
}

// fakeExtruder is a pressure-advance-free stand-in with no junction limit.
type fakeExtruder struct {
	trapq   *fakeTrapQueue
	moveErr error
	moves   int
}

func newFakeExtruder() *fakeExtruder { return &fakeExtruder{trapq: &fakeTrapQueue{}} }

func (e *fakeExtruder) CheckMove(m *motion.Move) error { return nil }
func (e *fakeExtruder) CalcJunction(prev, cur *motion.Move) float64 {
	return 1e18
}
func (e *fakeExtruder) Move(printTime float64, m *motion.Move) error {
	e.moves++
	return e.moveErr
}
func (e *fakeExtruder) UpdateMoveTime(flushTime float64) { e.trapq.FinalizeMoves(flushTime) }
func (e *fakeExtruder) GetName() string                  { return "extruder" }
func (e *fakeExtruder) GetTrapQueue() TrapQueue           { return e.trapq }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxVelocity = 300
	cfg.MaxAccel = 3000
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func newTestToolHead() (*ToolHead, *fakeReactor, *fakeMCU, *fakeTrapQueue, *fakeExtruder) {
	r := newFakeReactor()
	mcu := &fakeMCU{}
	trapq := &fakeTrapQueue{}
	kin := &fakeKinematics{}
	ext := newFakeExtruder()
	th := NewToolHead(testConfig(), r, mcu, []MCUClock{mcu}, kin, ext, trapq)
	return th, r, mcu, trapq, ext
}
