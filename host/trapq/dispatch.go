package trapq

import (
	"bytes"
	"compress/zlib"
	"fmt"

	"gopper/protocol"
)

// Sender is the minimal surface of protocol.HostTransport a dispatcher
// needs: encode-and-send one command, wait for the MCU's ack.
type Sender interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer)) error
}

// StepDispatcher walks finalized segments out of a Queue, serializes them
// with the wire-protocol VLQ encoder, compresses the batch with zlib (the
// teacher's tinycompress/zlib.go demonstrates the wire framing; here we use
// the standard library per host/mcu.go's own "use standard zlib for host"
// note) and hands the compressed bytes to the MCU transport as one command.
type StepDispatcher struct {
	sender Sender
	cmdID  uint16
}

// NewStepDispatcher binds a dispatcher to a transport and the MCU command ID
// registered for compressed step batches.
func NewStepDispatcher(sender Sender, cmdID uint16) *StepDispatcher {
	return &StepDispatcher{sender: sender, cmdID: cmdID}
}

// Flush encodes every segment in segs into one compressed batch and sends
// it through the dispatcher's Sender. The toolhead does not call it; the
// caller chooses which segments to pass.
func (d *StepDispatcher) Flush(segs []Segment) error {
	if len(segs) == 0 {
		return nil
	}

	encoded := encodeSegments(segs)

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("compress step batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compress step batch: %w", err)
	}

	payload := compressed.Bytes()
	return d.sender.SendCommand(d.cmdID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(len(payload)))
		output.Output(payload)
	})
}

// encodeSegments VLQ-encodes each segment's timing and kinematic fields in
// a fixed field order the MCU-side step-compression firmware expects.
func encodeSegments(segs []Segment) []byte {
	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, uint32(len(segs)))
	for _, s := range segs {
		encodeFloatAsMicros(out, s.Time)
		encodeFloatAsMicros(out, s.AccelT)
		encodeFloatAsMicros(out, s.CruiseT)
		encodeFloatAsMicros(out, s.DecelT)
		encodeFloatAsMicros(out, s.StartV)
		encodeFloatAsMicros(out, s.CruiseV)
	}
	return out.DataSince(0)
}

// encodeFloatAsMicros quantizes a seconds-scale float to integer
// microseconds before VLQ encoding, matching the integer wire format the
// MCU's step-compression command dictionary expects.
func encodeFloatAsMicros(out protocol.OutputBuffer, seconds float64) {
	protocol.EncodeVLQInt(out, int32(seconds*1e6))
}
