package kinematics

import (
	"testing"

	"gopper/motion"
	"gopper/standalone"
)

func testMachineConfig() *standalone.MachineConfig {
	return &standalone.MachineConfig{
		Axes: map[string]standalone.AxisConfig{
			"x": {MinPosition: 0, MaxPosition: 200},
			"y": {MinPosition: 0, MaxPosition: 200},
			"z": {MinPosition: 0, MaxPosition: 150},
		},
	}
}

func TestCheckMoveRejectsOutOfRangeEndPos(t *testing.T) {
	a, err := NewCartesianAdapter(testMachineConfig(), nil)
	if err != nil {
		t.Fatalf("NewCartesianAdapter: %v", err)
	}

	mv := &motion.Move{EndPos: motion.Vector4{250, 0, 0, 0}}
	if err := a.CheckMove(mv); err == nil {
		t.Errorf("expected CheckMove to reject X=250 against a 200mm limit")
	}
}

func TestCheckMoveAcceptsInRangeEndPos(t *testing.T) {
	a, err := NewCartesianAdapter(testMachineConfig(), nil)
	if err != nil {
		t.Fatalf("NewCartesianAdapter: %v", err)
	}

	mv := &motion.Move{EndPos: motion.Vector4{100, 50, 10, 0}}
	if err := a.CheckMove(mv); err != nil {
		t.Errorf("CheckMove rejected an in-range position: %v", err)
	}
}

func TestCalcPositionRoundTripsCartesianCoordinates(t *testing.T) {
	a, err := NewCartesianAdapter(testMachineConfig(), nil)
	if err != nil {
		t.Fatalf("NewCartesianAdapter: %v", err)
	}

	got, err := a.CalcPosition([]float64{10, 20, 30, 5})
	if err != nil {
		t.Fatalf("CalcPosition: %v", err)
	}
	if got != ([3]float64{10, 20, 30}) {
		t.Errorf("CalcPosition = %v, want {10 20 30}", got)
	}
}

func TestCalcPositionRejectsTooFewStepperPositions(t *testing.T) {
	a, err := NewCartesianAdapter(testMachineConfig(), nil)
	if err != nil {
		t.Fatalf("NewCartesianAdapter: %v", err)
	}

	if _, err := a.CalcPosition([]float64{1, 2}); err == nil {
		t.Errorf("expected an error for fewer than 3 stepper positions")
	}
}

func TestNewCartesianAdapterRejectsMissingAxis(t *testing.T) {
	cfg := &standalone.MachineConfig{Axes: map[string]standalone.AxisConfig{
		"x": {MinPosition: 0, MaxPosition: 200},
		"y": {MinPosition: 0, MaxPosition: 200},
	}}
	if _, err := NewCartesianAdapter(cfg, nil); err == nil {
		t.Errorf("expected an error when the z axis is not configured")
	}
}
