package mcu

import "testing"

func TestEstimatedPrintTimeIsRelativeToSyncClock(t *testing.T) {
	m := NewMCU()
	m.connected = true
	m.SyncClock(10.0)

	if got := m.EstimatedPrintTime(10.0); got != 0 {
		t.Errorf("EstimatedPrintTime at sync point = %v, want 0", got)
	}
	if got := m.EstimatedPrintTime(12.5); got != 2.5 {
		t.Errorf("EstimatedPrintTime 2.5s later = %v, want 2.5", got)
	}
}

func TestFlushMovesRequiresConnection(t *testing.T) {
	m := NewMCU()
	if err := m.FlushMoves(1.0); err == nil {
		t.Errorf("expected FlushMoves to fail on an unconnected MCU")
	}

	m.connected = true
	if err := m.FlushMoves(1.0); err != nil {
		t.Errorf("FlushMoves on a connected MCU: %v", err)
	}
}

func TestCheckActiveDetectsStalledLink(t *testing.T) {
	m := NewMCU()
	m.connected = true
	m.SyncClock(0)

	if err := m.CheckActive(1.0, 1.0); err != nil {
		t.Errorf("CheckActive with print_time caught up to eventtime: %v", err)
	}

	if err := m.CheckActive(10.0, 1.0); err == nil {
		t.Errorf("expected CheckActive to flag print_time running far ahead of estimated progress")
	}
}

func TestCheckActiveNeverStallsOnFileOutput(t *testing.T) {
	m := NewMCU()
	m.SetFileOutput(true)

	if err := m.CheckActive(1000.0, 0.0); err != nil {
		t.Errorf("file-output MCU should never report a stall: %v", err)
	}
}
