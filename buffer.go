// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

import (
	"bytes"
	"math"
)

// Buffer extends bytes.Buffer with the little endian accessors the ST-Link
// command protocol uses.
type Buffer struct {
	bytes.Buffer
}

func NewBuffer(initSize int) *Buffer {
	b := &Buffer{}

	b.Grow(initSize)

	return b
}

func (buf *Buffer) WriteUint32LE(value uint32) {
	buf.WriteByte(byte(value))
	buf.WriteByte(byte(value >> 8))
	buf.WriteByte(byte(value >> 16))
	buf.WriteByte(byte(value >> 24))
}

func (buf *Buffer) WriteUint16LE(value uint16) {
	buf.WriteByte(byte(value))
	buf.WriteByte(byte(value >> 8))
}

func (buf *Buffer) ReadUint32LE() uint32 {
	return uint32LE(buf.Bytes())
}

func uint32LE(buf []byte) uint32 {
	if len(buf) < 4 {
		logger.Error("could not read little endian uint32 from given buffer")
		return math.MaxUint32
	}

	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}
