// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

// transaction is one probe bus access as seen by the mock probe. Value holds
// the written word for writes and the returned word for reads.
type transaction struct {
	Op      string // "read" or "write"
	Address uint32
	Value   uint32
}

// mockProbe replays scripted register values and records every transaction
// in order. Reads consult the scripted queue for the address first and fall
// back to the last written (or preset) value.
type mockProbe struct {
	registers map[uint32]uint32
	queued    map[uint32][]uint32
	log       []transaction
}

func newMockProbe() *mockProbe {
	return &mockProbe{
		registers: make(map[uint32]uint32),
		queued:    make(map[uint32][]uint32),
	}
}

func (m *mockProbe) preset(address uint32, value uint32) {
	m.registers[address] = value
}

func (m *mockProbe) queueRead(address uint32, values ...uint32) {
	m.queued[address] = append(m.queued[address], values...)
}

func (m *mockProbe) ReadRegister(address uint32) (uint32, error) {
	value := m.registers[address]

	if queue := m.queued[address]; len(queue) > 0 {
		value = queue[0]
		m.queued[address] = queue[1:]
	}

	m.log = append(m.log, transaction{Op: "read", Address: address, Value: value})

	return value, nil
}

func (m *mockProbe) WriteRegister(address uint32, value uint32) error {
	m.registers[address] = value
	m.log = append(m.log, transaction{Op: "write", Address: address, Value: value})

	return nil
}

func (m *mockProbe) ReadWord32(address uint32) (uint32, error) {
	return m.ReadRegister(address)
}

func (m *mockProbe) WriteWord32(address uint32, value uint32) error {
	return m.WriteRegister(address, value)
}

// writesTo returns the written values targeting the 4K block at base, in
// order.
func (m *mockProbe) writesTo(base uint32) []transaction {
	var writes []transaction

	for _, t := range m.log {
		if t.Op == "write" && t.Address >= base && t.Address < base+0x1000 {
			writes = append(writes, t)
		}
	}

	return writes
}

// Debug component base addresses used throughout the tests.
const (
	testItmBase  uint32 = 0xE0000000
	testDwtBase  uint32 = 0xE0001000
	testTpiuBase uint32 = 0xE0040000
	testSwoBase  uint32 = 0xE0028000
	testTmcBase  uint32 = 0xE0043000
)

func testComponents(kinds ...PeripheralKind) []Component {
	bases := map[PeripheralKind]uint32{
		PeripheralItm:  testItmBase,
		PeripheralDwt:  testDwtBase,
		PeripheralTpiu: testTpiuBase,
		PeripheralSwo:  testSwoBase,
		PeripheralTmc:  testTmcBase,
	}

	var components []Component
	for _, kind := range kinds {
		components = append(components, Component{Kind: kind, BaseAddress: bases[kind]})
	}

	return components
}
