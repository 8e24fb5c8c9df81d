package railstepper

import (
	"testing"

	"gopper/host/toolhead"
)

func TestGetHomingInfoAndRangeReportConfiguredValues(t *testing.T) {
	cfg := Config{
		Name:            "extruder",
		Speed:           5,
		PositionEndstop: 0,
		PositiveDir:     false,
		PositionMin:     -1000,
		PositionMax:     1000,
	}
	r := New(cfg, []toolhead.Endstop{{Name: "extruder"}})

	info := r.GetHomingInfo()
	if info.Speed != 5 || info.PositionEndstop != 0 || info.PositiveDir {
		t.Errorf("GetHomingInfo() = %+v, want {Speed:5 PositionEndstop:0 PositiveDir:false}", info)
	}

	min, max := r.GetRange()
	if min != -1000 || max != 1000 {
		t.Errorf("GetRange() = (%v, %v), want (-1000, 1000)", min, max)
	}

	if len(r.GetEndstops()) != 1 || r.GetEndstops()[0].Name != "extruder" {
		t.Errorf("GetEndstops() = %v, want one endstop named extruder", r.GetEndstops())
	}
	if r.GetName() != "extruder" {
		t.Errorf("GetName() = %q, want %q", r.GetName(), "extruder")
	}
}

func TestSetPositionUpdatesCommandedPosition(t *testing.T) {
	r := New(Config{Name: "extruder"}, nil)

	if got := r.GetCommandedPosition(); got != 0 {
		t.Fatalf("initial GetCommandedPosition() = %v, want 0", got)
	}

	r.SetPosition([3]float64{42, 0, 0})
	if got := r.GetCommandedPosition(); got != 42 {
		t.Errorf("GetCommandedPosition() after SetPosition = %v, want 42", got)
	}
}
