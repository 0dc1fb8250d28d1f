// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// Probe is the transport boundary to the target. Every register sequence in
// this package is composed of single synchronous transactions on a Probe;
// errors returned from it are opaque transport failures and propagate to the
// caller unchanged.
//
// Implementations are not required to be safe for concurrent use. Callers
// embedding this package in a multi-threaded host must serialize access to
// the same probe themselves.
type Probe interface {
	// ReadRegister reads one 32-bit register in the debug address space.
	ReadRegister(address uint32) (uint32, error)

	// WriteRegister writes one 32-bit register in the debug address space.
	WriteRegister(address uint32, value uint32) error

	// ReadWord32 reads an aligned 32-bit word from target memory.
	ReadWord32(address uint32) (uint32, error)

	// WriteWord32 writes an aligned 32-bit word to target memory.
	WriteWord32(address uint32, value uint32) error
}
