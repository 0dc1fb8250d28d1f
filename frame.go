// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// FrameSize is the size of a formatted CoreSight trace frame in bytes.
const FrameSize = 16

// FrameDecoder unpacks formatted trace frames into (trace bus ID, byte)
// pairs. A frame is not required to restate the source ID for every byte,
// so the decoder carries the last announced ID across frames. It is a plain
// value owned by the caller; decoding the frames of one capture in order
// with the same decoder yields correct attribution across frame boundaries.
type FrameDecoder struct {
	id uint8
}

// NewFrameDecoder returns a decoder attributing data to the idle source
// (ID 0) until a frame announces a real source.
func NewFrameDecoder() FrameDecoder {
	return FrameDecoder{}
}

// ID returns the trace bus ID the next data byte will be attributed to.
func (d *FrameDecoder) ID() uint8 {
	return d.id
}

// Reset restarts attribution at the idle source, e.g. after a capture
// restart.
func (d *FrameDecoder) Reset() {
	d.id = 0
}

// Decode unpacks one 16-byte frame, calling emit for every data byte with
// the trace bus ID it belongs to. Short frames are ignored.
//
// Frame layout: bytes at even offsets either announce a new 7-bit source ID
// (LSB set) or carry 7 data bits; bytes at odd offsets are always whole data
// bytes; byte 15 holds one auxiliary bit per even byte. For a data byte the
// auxiliary bit restores its LSB. For an ID byte it marks that the following
// data byte still belongs to the previous source.
func (d *FrameDecoder) Decode(frame []byte, emit func(id uint8, data byte)) {
	if len(frame) < FrameSize {
		return
	}

	aux := frame[15]

	for i := 0; i < 15; i += 2 {
		b := frame[i]
		auxBit := aux>>(uint(i)/2)&1 != 0

		if b&0x01 != 0 {
			newID := (b >> 1) & 0x7F

			if i == 14 {
				d.id = newID
				continue
			}

			if auxBit {
				// Delayed ID change: the odd byte goes to the old source.
				emit(d.id, frame[i+1])
				d.id = newID
			} else {
				d.id = newID
				emit(d.id, frame[i+1])
			}
		} else {
			data := b
			if auxBit {
				data |= 0x01
			}

			emit(d.id, data)

			if i < 14 {
				emit(d.id, frame[i+1])
			}
		}
	}
}
