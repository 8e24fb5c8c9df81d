package trapq

import (
	"math"
	"testing"

	"gopper/protocol"
)

func TestAppendAndPending(t *testing.T) {
	q := New()
	q.Append(0, 0.1, 0.2, 0.1, [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, 0, 100, 1000)
	q.Append(0.4, 0.05, 0, 0.05, [3]float64{40, 0, 0}, [3]float64{1, 0, 0}, 100, 100, 1000)

	if got := len(q.Pending()); got != 2 {
		t.Fatalf("expected 2 pending segments, got %d", got)
	}
}

func TestFinalizeMovesExpiresOldSegments(t *testing.T) {
	q := New()
	q.Append(0, 0.1, 0, 0.1, [3]float64{}, [3]float64{1, 0, 0}, 0, 100, 1000)
	q.Append(1.0, 0.1, 0, 0.1, [3]float64{}, [3]float64{1, 0, 0}, 0, 100, 1000)

	q.FinalizeMoves(0.5)

	pending := q.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 segment remaining after finalize, got %d", len(pending))
	}
	if pending[0].Time != 1.0 {
		t.Errorf("wrong segment survived finalize: %+v", pending[0])
	}
}

func TestFinalizeMovesInfinityDropsEverything(t *testing.T) {
	q := New()
	q.Append(0, 0.1, 0, 0.1, [3]float64{}, [3]float64{1, 0, 0}, 0, 100, 1000)
	q.Append(5, 0.1, 0, 0.1, [3]float64{}, [3]float64{1, 0, 0}, 0, 100, 1000)

	q.FinalizeMoves(math.Inf(1))

	if len(q.Pending()) != 0 {
		t.Errorf("FinalizeMoves(+Inf) should drop all segments, got %d left", len(q.Pending()))
	}
}

// fakeSender records the command ID and encoded payload bytes sent to it,
// standing in for protocol.HostTransport.
type fakeSender struct {
	calls   int
	cmdID   uint16
	payload []byte
}

func (f *fakeSender) SendCommand(cmdID uint16, args func(output protocol.OutputBuffer)) error {
	f.calls++
	f.cmdID = cmdID
	out := protocol.NewScratchOutput()
	args(out)
	f.payload = out.Result()
	return nil
}

func TestStepDispatcherSkipsEmptyBatch(t *testing.T) {
	s := &fakeSender{}
	d := NewStepDispatcher(s, 5)
	if err := d.Flush(nil); err != nil {
		t.Errorf("Flush(nil) should be a no-op, got error %v", err)
	}
	if s.calls != 0 {
		t.Errorf("Flush(nil) should not touch the sender, got %d calls", s.calls)
	}
}

func TestStepDispatcherSendsCompressedBatch(t *testing.T) {
	s := &fakeSender{}
	d := NewStepDispatcher(s, 7)

	segs := []Segment{
		{Time: 0, AccelT: 0.1, CruiseT: 0.2, DecelT: 0.1, StartV: 0, CruiseV: 100, Accel: 1000},
	}
	if err := d.Flush(segs); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if s.calls != 1 {
		t.Fatalf("expected exactly 1 SendCommand call, got %d", s.calls)
	}
	if s.cmdID != 7 {
		t.Errorf("wrong command id sent: %d", s.cmdID)
	}
	if len(s.payload) == 0 {
		t.Errorf("expected non-empty compressed payload")
	}
}
