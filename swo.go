// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// SWO register offsets
const (
	swoCodrOffset = 0x010
	swoSpprOffset = 0x0F0
	swoLarOffset  = 0xFB0
)

type swoCodr uint32

func (r swoCodr) address() uint32 { return swoCodrOffset }
func (r swoCodr) word() uint32 { return uint32(r) }
func (r *swoCodr) setWord(value uint32) { *r = swoCodr(value) }

type swoSppr uint32

func (r swoSppr) address() uint32 { return swoSpprOffset }
func (r swoSppr) word() uint32 { return uint32(r) }
func (r *swoSppr) setWord(value uint32) { *r = swoSppr(value) }

type swoLar uint32

func (r swoLar) address() uint32 { return swoLarOffset }
func (r swoLar) word() uint32 { return uint32(r) }
func (r *swoLar) setWord(value uint32) { *r = swoLar(value) }

// Swo drives the standalone Serial Wire Output block found on targets that
// separate it from the TPIU. On targets without it the TPIU takes over its
// role, see TraceController.ConfigureSink.
type Swo struct {
	probe     Probe
	component *Component
}

func NewSwo(probe Probe, component *Component) *Swo {
	return &Swo{probe: probe, component: component}
}

// Unlock writes the CoreSight access key to the lock access register.
func (s *Swo) Unlock() error {
	lar := swoLar(unlockKey)

	return storeRegister(s.probe, s.component, &lar)
}

// SetPrescaler programs the conversion divisor for the output baud rate.
func (s *Swo) SetPrescaler(prescaler uint32) error {
	codr := swoCodr(prescaler)

	return storeRegister(s.probe, s.component, &codr)
}

// SetPinProtocol selects the output encoding: 1 = Manchester, 2 = NRZ/UART.
func (s *Swo) SetPinProtocol(protocol uint32) error {
	sppr := swoSppr(protocol)

	return storeRegister(s.probe, s.component, &sppr)
}
