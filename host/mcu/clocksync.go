package mcu

import "fmt"

// mcuTimeout is how far a scheduled print_time may run ahead of the MCU's
// estimated progress before CheckActive treats the link as stalled,
// mirroring the staleness window Klipper's MCU class enforces around its
// background transport thread.
const mcuTimeout = 4.0

// SyncClock anchors print_time zero to the reactor's current monotonic
// time. Call it once, right after RetrieveDictionary succeeds, before any
// toolhead.ToolHead is built against this MCU.
//
// This is a deliberately simplified stand-in for Klipper's full
// regression-based clocksync (which fits a drift-compensated mcu-clock/
// host-time line from repeated get_clock round trips): nothing in the
// retrieved corpus implements that regression, and a 1:1-rate host/MCU
// clock relationship is a reasonable approximation for a host controller
// bridging over USB CDC.
func (m *MCU) SyncClock(monotonic float64) {
	m.syncRefTime = monotonic
}

// EstimatedPrintTime reports how much print_time has elapsed since
// SyncClock was called, satisfying toolhead.MCUClock.
func (m *MCU) EstimatedPrintTime(monotonic float64) float64 {
	return monotonic - m.syncRefTime
}

// FlushMoves records the horizon up to which the toolhead has committed to
// not revise already-queued step timing, satisfying toolhead.MCUClock. It
// only records the value; nothing is sent to the MCU for that horizon.
func (m *MCU) FlushMoves(mcuFlushTime float64) error {
	if !m.connected {
		return fmt.Errorf("mcu: flush_moves with no active connection")
	}
	m.lastFlushTime = mcuFlushTime
	return nil
}

// IsFileOutput reports whether this MCU handle is a dry-run/file-capture
// target rather than a live microcontroller; the toolhead consults it to
// decide whether dwelling is allowed to pause for real time.
func (m *MCU) IsFileOutput() bool {
	return m.fileOutput
}

// SetFileOutput marks this MCU handle as writing to a file instead of a
// live serial link, used for offline gcode-to-steps export.
func (m *MCU) SetFileOutput(fileOutput bool) {
	m.fileOutput = fileOutput
}

// CheckActive reports an error once the scheduled print_time has drifted
// more than mcuTimeout seconds ahead of the MCU's estimated progress,
// satisfying toolhead.MCUClock. A file-output target never stalls this way
// since nothing is waiting on real MCU progress.
func (m *MCU) CheckActive(printTime, eventtime float64) error {
	if m.fileOutput {
		return nil
	}
	if !m.connected {
		return fmt.Errorf("mcu: not connected")
	}
	est := m.EstimatedPrintTime(eventtime)
	if printTime-est > mcuTimeout {
		return fmt.Errorf("mcu: lost communication with MCU (print_time %.3f is %.3fs ahead of estimated %.3f)", printTime, printTime-est, est)
	}
	return nil
}
