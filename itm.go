// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// Trace bus ID assigned to the ITM stimulus stream. The trace memory
// demultiplexer keys on this ID to separate ITM bytes from other sources.
const ItmTraceBusID = 13

// ITM register offsets
const (
	itmTerOffset = 0xE00
	itmTcrOffset = 0xE80
	itmLarOffset = 0xFB0
)

// CoreSight software lock access key
const unlockKey = 0xC5ACCE55

type itmTer uint32

func (r itmTer) address() uint32 { return itmTerOffset }
func (r itmTer) word() uint32 { return uint32(r) }
func (r *itmTer) setWord(value uint32) { *r = itmTer(value) }

type itmTcr uint32

func (r itmTcr) address() uint32 { return itmTcrOffset }
func (r itmTcr) word() uint32 { return uint32(r) }
func (r *itmTcr) setWord(value uint32) { *r = itmTcr(value) }

func (r *itmTcr) setItmEna(enabled bool) {
	*r = itmTcr(setBits(uint32(*r), 0, 1, boolToBit(enabled)))
}

func (r *itmTcr) setSyncEna(enabled bool) {
	*r = itmTcr(setBits(uint32(*r), 2, 1, boolToBit(enabled)))
}

func (r *itmTcr) setTxEna(enabled bool) {
	*r = itmTcr(setBits(uint32(*r), 3, 1, boolToBit(enabled)))
}

func (r *itmTcr) setTraceBusID(id uint32) {
	*r = itmTcr(setBits(uint32(*r), 16, 7, id))
}

type itmLar uint32

func (r itmLar) address() uint32 { return itmLarOffset }
func (r itmLar) word() uint32 { return uint32(r) }
func (r *itmLar) setWord(value uint32) { *r = itmLar(value) }

// Itm drives the Instrumentation Trace Macrocell, the software-stimulated
// trace byte source.
type Itm struct {
	probe     Probe
	component *Component
}

func NewItm(probe Probe, component *Component) *Itm {
	return &Itm{probe: probe, component: component}
}

// Unlock writes the CoreSight access key to the lock access register,
// making the ITM configuration registers writable.
func (i *Itm) Unlock() error {
	lar := itmLar(unlockKey)

	return storeRegister(i.probe, i.component, &lar)
}

// TxEnable enables all 32 stimulus ports and turns the ITM on with trace
// bus ID ItmTraceBusID.
func (i *Itm) TxEnable() error {
	ter := itmTer(0xFFFFFFFF)

	if err := storeRegister(i.probe, i.component, &ter); err != nil {
		return err
	}

	var tcr itmTcr

	if err := loadRegister(i.probe, i.component, &tcr); err != nil {
		return err
	}

	tcr.setItmEna(true)
	tcr.setSyncEna(true)
	tcr.setTxEna(true)
	tcr.setTraceBusID(ItmTraceBusID)

	return storeRegister(i.probe, i.component, &tcr)
}
