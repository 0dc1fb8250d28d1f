// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// ReadTraceMemory drains the available contents of the trace memory FIFO
// and returns the ITM byte stream extracted from it. It does not block for
// new data: at most one FIFO's worth is read per call, so under sustained
// inflow the caller simply calls again. The frame decode state survives
// between calls, a frame may hand its source ID forward to the next one.
//
// The result never exceeds the FIFO size and is always derived from whole
// 16-byte frames. Bytes from the idle source are discarded; bytes from any
// unexpected source are discarded with a warning.
func (tc *TraceController) ReadTraceMemory() ([]byte, error) {
	component, err := findComponent(tc.components, PeripheralTmc)
	if err != nil {
		return nil, err
	}

	tmc := NewTmc(tc.probe, component)

	fifoSize, err := tmc.FifoSize()
	if err != nil {
		return nil, err
	}

	// Drain the FIFO following "Software FIFO Mode" from the TMC TRM.
	// Reading must only stop on a whole number of formatted frames, so an
	// empty FIFO mid-frame is polled until the rest of the frame arrives.
	var raw []byte

	for {
		word, ok, err := tmc.Read()
		if err != nil {
			return nil, err
		}

		if ok {
			raw = append(raw, byte(word), byte(word>>8), byte(word>>16), byte(word>>24))
		} else if len(raw)%FrameSize == 0 {
			break
		}

		// If the FIFO fills faster than it drains, stop at the next frame
		// boundary past its capacity so the read stays bounded.
		if len(raw)%FrameSize == 0 && uint32(len(raw)) >= fifoSize {
			break
		}
	}

	var itmTrace []byte

	for offset := 0; offset+FrameSize <= len(raw); offset += FrameSize {
		tc.decoder.Decode(raw[offset:offset+FrameSize], func(id uint8, data byte) {
			switch id {
			case ItmTraceBusID:
				itmTrace = append(itmTrace, data)

			case 0:
				// idle source, padding

			default:
				logger.Warnf("unexpected trace source ID %d: 0x%02x, ignoring", id, data)
			}
		})
	}

	return itmTrace, nil
}

// ResetDecoder restarts frame source attribution, to be used together with
// a capture restart.
func (tc *TraceController) ResetDecoder() {
	tc.decoder.Reset()
}
