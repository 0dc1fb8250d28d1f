// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// TMC register offsets
const (
	tmcRszOffset  = 0x004
	tmcStsOffset  = 0x00C
	tmcRrdOffset  = 0x010
	tmcCtlOffset  = 0x020
	tmcModeOffset = 0x028
)

// The RAM read data register returns this marker when the FIFO is empty.
const tmcFifoEmpty = 0xFFFFFFFF

type TmcMode uint32 // capture modes of the trace memory controller

const (
	TmcModeCircularBuffer TmcMode = 0
	TmcModeSoftwareFifo           = 1
	TmcModeHardwareFifo           = 2
)

type tmcRsz uint32

func (r tmcRsz) address() uint32 { return tmcRszOffset }
func (r tmcRsz) word() uint32 { return uint32(r) }
func (r *tmcRsz) setWord(value uint32) { *r = tmcRsz(value) }

type tmcSts uint32

func (r tmcSts) address() uint32 { return tmcStsOffset }
func (r tmcSts) word() uint32 { return uint32(r) }
func (r *tmcSts) setWord(value uint32) { *r = tmcSts(value) }

func (r tmcSts) ready() bool {
	return getBits(uint32(r), 2, 1) != 0
}

type tmcRrd uint32

func (r tmcRrd) address() uint32 { return tmcRrdOffset }
func (r tmcRrd) word() uint32 { return uint32(r) }
func (r *tmcRrd) setWord(value uint32) { *r = tmcRrd(value) }

type tmcCtl uint32

func (r tmcCtl) address() uint32 { return tmcCtlOffset }
func (r tmcCtl) word() uint32 { return uint32(r) }
func (r *tmcCtl) setWord(value uint32) { *r = tmcCtl(value) }

func (r *tmcCtl) setCaptEn(enabled bool) {
	*r = tmcCtl(setBits(uint32(*r), 0, 1, boolToBit(enabled)))
}

type tmcMode uint32

func (r tmcMode) address() uint32 { return tmcModeOffset }
func (r tmcMode) word() uint32 { return uint32(r) }
func (r *tmcMode) setWord(value uint32) { *r = tmcMode(value) }

// Tmc drives the Trace Memory Controller, which buffers formatted trace
// frames in internal RAM for software-polled readout.
type Tmc struct {
	probe     Probe
	component *Component
}

func NewTmc(probe Probe, component *Component) *Tmc {
	return &Tmc{probe: probe, component: component}
}

// EnableCapture sets the trace capture enable bit.
func (t *Tmc) EnableCapture() error {
	var ctl tmcCtl

	if err := loadRegister(t.probe, t.component, &ctl); err != nil {
		return err
	}

	ctl.setCaptEn(true)

	return storeRegister(t.probe, t.component, &ctl)
}

// DisableCapture clears the trace capture enable bit.
func (t *Tmc) DisableCapture() error {
	var ctl tmcCtl

	if err := loadRegister(t.probe, t.component, &ctl); err != nil {
		return err
	}

	ctl.setCaptEn(false)

	return storeRegister(t.probe, t.component, &ctl)
}

// Ready reports whether the TMC has drained its internal pipeline after a
// capture disable and can be reprogrammed.
func (t *Tmc) Ready() (bool, error) {
	var sts tmcSts

	if err := loadRegister(t.probe, t.component, &sts); err != nil {
		return false, err
	}

	return sts.ready(), nil
}

// SetMode selects the capture mode.
func (t *Tmc) SetMode(mode TmcMode) error {
	reg := tmcMode(mode)

	return storeRegister(t.probe, t.component, &reg)
}

// FifoSize returns the size of the trace memory in bytes.
func (t *Tmc) FifoSize() (uint32, error) {
	var rsz tmcRsz

	if err := loadRegister(t.probe, t.component, &rsz); err != nil {
		return 0, err
	}

	// RSZ counts 32-bit words
	return rsz.word() * 4, nil
}

// Read pops one word from the trace memory FIFO. The second return value is
// false when no data is available.
func (t *Tmc) Read() (uint32, bool, error) {
	var rrd tmcRrd

	if err := loadRegister(t.probe, t.component, &rrd); err != nil {
		return 0, false, err
	}

	if rrd.word() == tmcFifoEmpty {
		return 0, false, nil
	}

	return rrd.word(), true, nil
}
