// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// TPIU register offsets
const (
	tpiuCspsrOffset = 0x004
	tpiuAcprOffset  = 0x010
	tpiuSpprOffset  = 0x0F0
	tpiuFfcrOffset  = 0x304
)

type tpiuCspsr uint32

func (r tpiuCspsr) address() uint32 { return tpiuCspsrOffset }
func (r tpiuCspsr) word() uint32 { return uint32(r) }
func (r *tpiuCspsr) setWord(value uint32) { *r = tpiuCspsr(value) }

type tpiuAcpr uint32

func (r tpiuAcpr) address() uint32 { return tpiuAcprOffset }
func (r tpiuAcpr) word() uint32 { return uint32(r) }
func (r *tpiuAcpr) setWord(value uint32) { *r = tpiuAcpr(value) }

type tpiuSppr uint32

func (r tpiuSppr) address() uint32 { return tpiuSpprOffset }
func (r tpiuSppr) word() uint32 { return uint32(r) }
func (r *tpiuSppr) setWord(value uint32) { *r = tpiuSppr(value) }

type tpiuFfcr uint32

func (r tpiuFfcr) address() uint32 { return tpiuFfcrOffset }
func (r tpiuFfcr) word() uint32 { return uint32(r) }
func (r *tpiuFfcr) setWord(value uint32) { *r = tpiuFfcr(value) }

// Tpiu drives the Trace Port Interface Unit which serializes trace data
// off-chip, here always used in serial wire mode.
type Tpiu struct {
	probe     Probe
	component *Component
}

func NewTpiu(probe Probe, component *Component) *Tpiu {
	return &Tpiu{probe: probe, component: component}
}

// SetPortSize selects the trace port width; 1 selects serial wire output.
func (t *Tpiu) SetPortSize(size uint32) error {
	cspsr := tpiuCspsr(size)

	return storeRegister(t.probe, t.component, &cspsr)
}

// SetPrescaler programs the asynchronous clock prescaler, dividing the
// trace clock down to the output baud rate.
func (t *Tpiu) SetPrescaler(prescaler uint32) error {
	acpr := tpiuAcpr(prescaler)

	return storeRegister(t.probe, t.component, &acpr)
}

// SetPinProtocol selects the output encoding: 1 = Manchester, 2 = NRZ/UART.
func (t *Tpiu) SetPinProtocol(protocol uint32) error {
	sppr := tpiuSppr(protocol)

	return storeRegister(t.probe, t.component, &sppr)
}

// SetFormatter writes the formatter and flush control register as a whole
// word; bit 1 (EnFCont) selects continuous formatting.
func (t *Tpiu) SetFormatter(value uint32) error {
	ffcr := tpiuFfcr(value)

	return storeRegister(t.probe, t.component, &ffcr)
}
