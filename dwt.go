// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// DWT register offsets
const (
	dwtCtrlOffset     = 0x00
	dwtCompOffset     = 0x20 // replicated per comparator unit
	dwtFunctionOffset = 0x28 // replicated per comparator unit
)

type dwtCtrl uint32

func (r dwtCtrl) address() uint32 { return dwtCtrlOffset }
func (r dwtCtrl) word() uint32 { return uint32(r) }
func (r *dwtCtrl) setWord(value uint32) { *r = dwtCtrl(value) }

func (r *dwtCtrl) setCycCntEna(enabled bool) {
	*r = dwtCtrl(setBits(uint32(*r), 0, 1, boolToBit(enabled)))
}

func (r *dwtCtrl) setSyncTap(tap uint32) {
	*r = dwtCtrl(setBits(uint32(*r), 10, 2, tap))
}

func (r *dwtCtrl) setExcTrcEna(enabled bool) {
	*r = dwtCtrl(setBits(uint32(*r), 16, 1, boolToBit(enabled)))
}

type dwtComp uint32

func (r dwtComp) address() uint32 { return dwtCompOffset }
func (r dwtComp) word() uint32 { return uint32(r) }
func (r *dwtComp) setWord(value uint32) { *r = dwtComp(value) }

type dwtFunction uint32

func (r dwtFunction) address() uint32 { return dwtFunctionOffset }
func (r dwtFunction) word() uint32 { return uint32(r) }
func (r *dwtFunction) setWord(value uint32) { *r = dwtFunction(value) }

func (r *dwtFunction) setFunction(function uint32) {
	*r = dwtFunction(setBits(uint32(*r), 0, 4, function))
}

func (r *dwtFunction) setEmitRange(enabled bool) {
	*r = dwtFunction(setBits(uint32(*r), 5, 1, boolToBit(enabled)))
}

func (r *dwtFunction) setCycMatch(enabled bool) {
	*r = dwtFunction(setBits(uint32(*r), 7, 1, boolToBit(enabled)))
}

func (r *dwtFunction) setDataVMatch(enabled bool) {
	*r = dwtFunction(setBits(uint32(*r), 8, 1, boolToBit(enabled)))
}

func (r *dwtFunction) setDataVSize(size uint32) {
	*r = dwtFunction(setBits(uint32(*r), 10, 2, size))
}

// Dwt drives the Data Watchpoint and Trace unit, the source of cycle count,
// exception and data-access trace events.
type Dwt struct {
	probe     Probe
	component *Component
}

func NewDwt(probe Probe, component *Component) *Dwt {
	return &Dwt{probe: probe, component: component}
}

// Enable turns on the cycle counter and the synchronization packet tap.
func (d *Dwt) Enable() error {
	var ctrl dwtCtrl

	if err := loadRegister(d.probe, d.component, &ctrl); err != nil {
		return err
	}

	ctrl.setSyncTap(1)
	ctrl.setCycCntEna(true)

	return storeRegister(d.probe, d.component, &ctrl)
}

// EnableExceptionTrace enables exception entry/exit trace event generation.
func (d *Dwt) EnableExceptionTrace() error {
	var ctrl dwtCtrl

	if err := loadRegister(d.probe, d.component, &ctrl); err != nil {
		return err
	}

	ctrl.setExcTrcEna(true)

	return storeRegister(d.probe, d.component, &ctrl)
}

// EnableDataTrace programs comparator `unit` to emit data trace packets for
// word accesses to `address`.
func (d *Dwt) EnableDataTrace(unit int, address uint32) error {
	comp := dwtComp(address)

	if err := storeRegisterUnit(d.probe, d.component, &comp, unit); err != nil {
		return err
	}

	var function dwtFunction
	function.setFunction(0x3) // sample data value on read/write
	function.setEmitRange(false)
	function.setCycMatch(false)
	function.setDataVMatch(false)
	function.setDataVSize(0x2) // word sized

	return storeRegisterUnit(d.probe, d.component, &function, unit)
}

// DisableDataTrace clears the function control register of comparator `unit`.
func (d *Dwt) DisableDataTrace(unit int) error {
	var function dwtFunction

	return storeRegisterUnit(d.probe, d.component, &function, unit)
}

func boolToBit(value bool) uint32 {
	if value {
		return 1
	}

	return 0
}
