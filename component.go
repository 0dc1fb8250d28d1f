// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

type PeripheralKind uint8 // CoreSight peripheral types relevant for tracing

const (
	PeripheralDwt PeripheralKind = iota
	PeripheralItm
	PeripheralTpiu
	PeripheralSwo
	PeripheralTmc
	PeripheralUnknown
)

func (k PeripheralKind) String() string {
	switch k {
	case PeripheralDwt:
		return "DWT"
	case PeripheralItm:
		return "ITM"
	case PeripheralTpiu:
		return "TPIU"
	case PeripheralSwo:
		return "SWO"
	case PeripheralTmc:
		return "TMC"
	default:
		return "unknown peripheral"
	}
}

// Component is a CoreSight debug component discovered in the target's ROM
// table, bound to the base address of its 4K register block. The component
// list is owned by the caller and only borrowed here.
type Component struct {
	Kind        PeripheralKind
	BaseAddress uint32
}

func (c *Component) readReg(probe Probe, offset uint32) (uint32, error) {
	return probe.ReadRegister(c.BaseAddress + offset)
}

func (c *Component) writeReg(probe Probe, offset uint32, value uint32) error {
	return probe.WriteRegister(c.BaseAddress+offset, value)
}

// findComponent returns the first component of the given kind from the
// supplied list.
func findComponent(components []Component, kind PeripheralKind) (*Component, error) {
	for i := range components {
		if components[i].Kind == kind {
			return &components[i], nil
		}
	}

	return nil, newComponentNotFoundError(kind)
}

// Replicated registers (e.g. the DWT comparators) repeat at this byte
// stride per hardware unit.
const unitStride = 16

// debugRegister is implemented by every fixed-layout 32-bit debug register
// value in this package. Each register knows its own offset within the
// component's register block; loads and stores always move the whole word.
type debugRegister interface {
	address() uint32
	word() uint32
	setWord(value uint32)
}

func loadRegister(probe Probe, component *Component, reg debugRegister) error {
	value, err := component.readReg(probe, reg.address())
	if err != nil {
		return err
	}

	reg.setWord(value)
	return nil
}

func storeRegister(probe Probe, component *Component, reg debugRegister) error {
	return component.writeReg(probe, reg.address(), reg.word())
}

func loadRegisterUnit(probe Probe, component *Component, reg debugRegister, unit int) error {
	value, err := component.readReg(probe, reg.address()+uint32(unit*unitStride))
	if err != nil {
		return err
	}

	reg.setWord(value)
	return nil
}

func storeRegisterUnit(probe Probe, component *Component, reg debugRegister, unit int) error {
	return component.writeReg(probe, reg.address()+uint32(unit*unitStride), reg.word())
}

func setBits(word uint32, first uint, num uint, value uint32) uint32 {
	mask := (uint32(1)<<num - 1) << first

	return (word &^ mask) | ((value << first) & mask)
}

func getBits(word uint32, first uint, num uint) uint32 {
	return (word >> first) & (uint32(1)<<num - 1)
}
