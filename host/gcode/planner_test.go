package gcode

import (
	"errors"
	"testing"

	"gopper/host/toolhead"
	"gopper/motion"
)

// fakeReactor/fakeMCU/etc. live in host/toolhead's test files, unexported;
// this package builds its own minimal doubles against the public contracts.

type noopReactor struct{ now float64 }

func (r *noopReactor) Monotonic() float64                                         { return r.now }
func (r *noopReactor) Pause(deadline float64) float64                             { r.now = deadline; return r.now }
func (r *noopReactor) RegisterTimer(cb func(eventtime float64) float64) interface{} { return nil }
func (r *noopReactor) UpdateTimer(handle interface{}, when float64)               {}

type noopMCU struct{}

func (noopMCU) EstimatedPrintTime(monotonic float64) float64     { return monotonic }
func (noopMCU) FlushMoves(mcuFlushTime float64) error             { return nil }
func (noopMCU) IsFileOutput() bool                                { return false }
func (noopMCU) CheckActive(printTime, eventtime float64) error { return nil }

type noopTrapQueue struct{}

func (noopTrapQueue) Append(t, accelT, cruiseT, decelT float64, startPos, axesR [3]float64, startV, cruiseV, accel float64) {
}
func (noopTrapQueue) SetPosition(t, x, y, z float64) {}
func (noopTrapQueue) FinalizeMoves(flushTime float64) {}

type noopKinematics struct{}

func (noopKinematics) CheckMove(m *motion.Move) error { return nil }
func (noopKinematics) SetPosition(newpos motion.Vector4, homingAxes []int) error {
	return nil
}
func (noopKinematics) GetSteppers() []toolhead.StepperRail { return nil }
func (noopKinematics) CalcPosition(stepperPositions []float64) ([3]float64, error) {
	return [3]float64{}, nil
}
func (noopKinematics) GetStatus(eventtime float64) map[string]interface{} {
	return map[string]interface{}{}
}

type noopExtruder struct{}

func (noopExtruder) CheckMove(m *motion.Move) error                   { return nil }
func (noopExtruder) CalcJunction(prev, cur *motion.Move) float64      { return 1e18 }
func (noopExtruder) Move(printTime float64, m *motion.Move) error    { return nil }
func (noopExtruder) UpdateMoveTime(flushTime float64)                {}
func (noopExtruder) GetName() string                                  { return "extruder" }
func (noopExtruder) GetTrapQueue() toolhead.TrapQueue                 { return noopTrapQueue{} }

func testToolHead() *toolhead.ToolHead {
	cfg := toolhead.DefaultConfig()
	cfg.MaxVelocity = 300
	cfg.MaxAccel = 3000
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	r := &noopReactor{}
	mcu := noopMCU{}
	return toolhead.NewToolHead(cfg, r, mcu, []toolhead.MCUClock{mcu}, noopKinematics{}, noopExtruder{}, noopTrapQueue{})
}

type fakeHomingDriver struct {
	called bool
	err    error
}

func (d *fakeHomingDriver) ManualHome(th toolhead.ToolheadLike, endstops []toolhead.Endstop, pos motion.Vector4, speed float64, triggered, checkTriggered bool) error {
	d.called = true
	return d.err
}

type fakeRail struct{ commanded float64 }

func (r *fakeRail) GetEndstops() []toolhead.Endstop { return nil }
func (r *fakeRail) GetHomingInfo() toolhead.HomingInfo {
	return toolhead.HomingInfo{Speed: 5, PositionEndstop: 0, PositiveDir: false}
}
func (r *fakeRail) GetRange() (float64, float64)     { return -1000, 1000 }
func (r *fakeRail) GetCommandedPosition() float64    { return r.commanded }
func (r *fakeRail) SetPosition(pos [3]float64)       { r.commanded = pos[0] }
func (r *fakeRail) GetName() string                  { return "extruder" }

func TestSetVelocityLimitUpdatesToolhead(t *testing.T) {
	th := testToolHead()
	p := NewToolheadPlanner(th)

	vel := 250.0
	p.SetVelocityLimit(&vel, nil, nil, nil)

	status := th.GetStatus(0)
	if status.MaxVelocity != 250 {
		t.Errorf("max_velocity = %v, want 250", status.MaxVelocity)
	}
}

func TestSetAccelUpdatesToolhead(t *testing.T) {
	th := testToolHead()
	p := NewToolheadPlanner(th)

	s := 2000.0
	if ok := p.SetAccel(&s, nil, nil); !ok {
		t.Fatalf("SetAccel should succeed with S given")
	}
	if got := th.GetStatus(0).MaxAccel; got != 2000 {
		t.Errorf("max_accel = %v, want 2000", got)
	}
}

func TestHomeExtruderRoutesToRegisteredHomer(t *testing.T) {
	th := testToolHead()
	p := NewToolheadPlanner(th)
	rail := &fakeRail{}
	homer := toolhead.NewExtruderHomer(th, rail, noopExtruder{}, toolhead.HaltPositionZero)
	driver := &fakeHomingDriver{}
	p.RegisterExtruderHomer("extruder", homer, driver)

	if err := p.HomeExtruder("extruder"); err != nil {
		t.Fatalf("HomeExtruder: %v", err)
	}
	if !driver.called {
		t.Errorf("expected the registered homing driver to be invoked")
	}
}

func TestHomeExtruderUnknownNameErrors(t *testing.T) {
	th := testToolHead()
	p := NewToolheadPlanner(th)

	err := p.HomeExtruder("nonexistent")
	if err == nil {
		t.Fatalf("expected an error for an unregistered extruder name")
	}
	var target error
	_ = errors.As(err, &target)
}
