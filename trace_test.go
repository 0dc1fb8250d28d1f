// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConfigureSinkTraceMemorySequence(t *testing.T) {
	probe := newMockProbe()
	probe.queueRead(testTmcBase+tmcStsOffset, 0x0, 0x4) // not ready once, then ready

	controller := NewTraceController(probe, testComponents(PeripheralDwt, PeripheralItm, PeripheralTmc))

	err := controller.ConfigureSink(TraceSink{Type: SinkTraceMemory})
	if err != nil {
		t.Fatalf("ConfigureSink failed: %v", err)
	}

	expected := []transaction{
		// DWT enable, then exception trace
		{Op: "read", Address: testDwtBase + dwtCtrlOffset, Value: 0x0},
		{Op: "write", Address: testDwtBase + dwtCtrlOffset, Value: 0x401},
		{Op: "read", Address: testDwtBase + dwtCtrlOffset, Value: 0x401},
		{Op: "write", Address: testDwtBase + dwtCtrlOffset, Value: 0x10401},
		// ITM unlock and tx enable with trace bus ID 13
		{Op: "write", Address: testItmBase + itmLarOffset, Value: 0xC5ACCE55},
		{Op: "write", Address: testItmBase + itmTerOffset, Value: 0xFFFFFFFF},
		{Op: "read", Address: testItmBase + itmTcrOffset, Value: 0x0},
		{Op: "write", Address: testItmBase + itmTcrOffset, Value: 0xD000D},
		// TMC capture restart: disable, poll ready, software mode, enable
		{Op: "read", Address: testTmcBase + tmcCtlOffset, Value: 0x0},
		{Op: "write", Address: testTmcBase + tmcCtlOffset, Value: 0x0},
		{Op: "read", Address: testTmcBase + tmcStsOffset, Value: 0x0},
		{Op: "read", Address: testTmcBase + tmcStsOffset, Value: 0x4},
		{Op: "write", Address: testTmcBase + tmcModeOffset, Value: 0x1},
		{Op: "read", Address: testTmcBase + tmcCtlOffset, Value: 0x0},
		{Op: "write", Address: testTmcBase + tmcCtlOffset, Value: 0x1},
	}

	if diff := cmp.Diff(expected, probe.log); diff != "" {
		t.Errorf("unexpected transaction sequence (-want +got):\n%s", diff)
	}
}

func TestConfigureSinkTpiu(t *testing.T) {
	probe := newMockProbe()

	controller := NewTraceController(probe, testComponents(PeripheralDwt, PeripheralItm, PeripheralTpiu))

	sink := TraceSink{
		Type: SinkTpiu,
		Config: SwoConfig{
			TraceClock:           16000000,
			Baud:                 2000000,
			Mode:                 SwoModeUart,
			ContinuousFormatting: true,
		},
	}

	if err := controller.ConfigureSink(sink); err != nil {
		t.Fatalf("ConfigureSink failed: %v", err)
	}

	expected := []transaction{
		{Op: "write", Address: testTpiuBase + tpiuCspsrOffset, Value: 1},   // serial wire
		{Op: "write", Address: testTpiuBase + tpiuAcprOffset, Value: 7},    // 16 MHz / 2 MBd - 1
		{Op: "write", Address: testTpiuBase + tpiuSpprOffset, Value: 2},    // NRZ
		{Op: "write", Address: testTpiuBase + tpiuFfcrOffset, Value: 0x102}, // EnFCont set
	}

	if diff := cmp.Diff(expected, probe.writesTo(testTpiuBase)); diff != "" {
		t.Errorf("unexpected TPIU writes (-want +got):\n%s", diff)
	}
}

func TestConfigureSinkSourcesBeforeSink(t *testing.T) {
	probe := newMockProbe()

	controller := NewTraceController(probe, testComponents(PeripheralDwt, PeripheralItm, PeripheralTpiu))

	sink := TraceSink{
		Type:   SinkTpiu,
		Config: SwoConfig{TraceClock: 1000000, Baud: 1000000, Mode: SwoModeManchester},
	}

	if err := controller.ConfigureSink(sink); err != nil {
		t.Fatalf("ConfigureSink failed: %v", err)
	}

	sawSinkWrite := false
	sawItmEnable := false

	for _, tr := range probe.log {
		if tr.Op == "write" && tr.Address >= testTpiuBase && tr.Address < testTpiuBase+0x1000 {
			sawSinkWrite = true
		}

		if tr.Op == "write" && tr.Address == testItmBase+itmTcrOffset {
			if sawSinkWrite {
				t.Fatal("ITM enabled after the sink was already programmed")
			}

			sawItmEnable = true
		}
	}

	if !sawSinkWrite || !sawItmEnable {
		t.Fatalf("incomplete sequence: sink write %v, itm enable %v", sawSinkWrite, sawItmEnable)
	}
}

func TestPrescalerBoundary(t *testing.T) {
	probe := newMockProbe()

	controller := NewTraceController(probe, testComponents(PeripheralDwt, PeripheralItm, PeripheralTpiu))

	// clock == baud must give prescaler 0
	sink := TraceSink{
		Type:   SinkTpiu,
		Config: SwoConfig{TraceClock: 1000000, Baud: 1000000, Mode: SwoModeManchester},
	}

	if err := controller.ConfigureSink(sink); err != nil {
		t.Fatalf("ConfigureSink failed: %v", err)
	}

	for _, tr := range probe.writesTo(testTpiuBase) {
		if tr.Address == testTpiuBase+tpiuAcprOffset && tr.Value != 0 {
			t.Errorf("expected prescaler 0 for clock == baud, got %d", tr.Value)
		}
	}
}

func TestUnsupportedBaudRate(t *testing.T) {
	for _, config := range []SwoConfig{
		{TraceClock: 1000000, Baud: 0, Mode: SwoModeUart},
		{TraceClock: 1000000, Baud: 2000000, Mode: SwoModeUart},
	} {
		probe := newMockProbe()
		controller := NewTraceController(probe, testComponents(PeripheralDwt, PeripheralItm, PeripheralTpiu))

		err := controller.ConfigureSink(TraceSink{Type: SinkTpiu, Config: config})

		var unsupported *UnsupportedConfigError
		if !errors.As(err, &unsupported) {
			t.Errorf("clock %d baud %d: expected UnsupportedConfigError, got %v",
				config.TraceClock, config.Baud, err)
		}
	}
}

func TestSwoFallbackMatchesTpiu(t *testing.T) {
	config := SwoConfig{
		TraceClock: 8000000,
		Baud:       1000000,
		Mode:       SwoModeManchester,
	}

	// No SWO component present: requesting the SWO sink must fall back to
	// programming the TPIU with the identical register writes.
	swoProbe := newMockProbe()
	swoController := NewTraceController(swoProbe, testComponents(PeripheralDwt, PeripheralItm, PeripheralTpiu))

	if err := swoController.ConfigureSink(TraceSink{Type: SinkSwo, Config: config}); err != nil {
		t.Fatalf("ConfigureSink(Swo) failed: %v", err)
	}

	tpiuProbe := newMockProbe()
	tpiuController := NewTraceController(tpiuProbe, testComponents(PeripheralDwt, PeripheralItm, PeripheralTpiu))

	if err := tpiuController.ConfigureSink(TraceSink{Type: SinkTpiu, Config: config}); err != nil {
		t.Fatalf("ConfigureSink(Tpiu) failed: %v", err)
	}

	if diff := cmp.Diff(tpiuProbe.log, swoProbe.log); diff != "" {
		t.Errorf("SWO fallback differs from direct TPIU configuration (-tpiu +swo):\n%s", diff)
	}
}

func TestSwoDedicatedComponent(t *testing.T) {
	probe := newMockProbe()

	controller := NewTraceController(probe,
		testComponents(PeripheralDwt, PeripheralItm, PeripheralSwo, PeripheralTpiu))

	sink := TraceSink{
		Type:   SinkSwo,
		Config: SwoConfig{TraceClock: 4000000, Baud: 2000000, Mode: SwoModeUart},
	}

	if err := controller.ConfigureSink(sink); err != nil {
		t.Fatalf("ConfigureSink failed: %v", err)
	}

	expected := []transaction{
		{Op: "write", Address: testSwoBase + swoLarOffset, Value: 0xC5ACCE55},
		{Op: "write", Address: testSwoBase + swoCodrOffset, Value: 1},
		{Op: "write", Address: testSwoBase + swoSpprOffset, Value: 2},
	}

	if diff := cmp.Diff(expected, probe.writesTo(testSwoBase)); diff != "" {
		t.Errorf("unexpected SWO writes (-want +got):\n%s", diff)
	}

	if writes := probe.writesTo(testTpiuBase); len(writes) != 0 {
		t.Errorf("TPIU must not be touched when a dedicated SWO block exists, got %v", writes)
	}
}

func TestConfigureSinkMissingComponents(t *testing.T) {
	components := testComponents(PeripheralDwt, PeripheralItm, PeripheralTmc)

	config := SwoConfig{TraceClock: 1000000, Baud: 1000000, Mode: SwoModeUart}

	for _, tc := range []struct {
		name string
		sink TraceSink
		kind PeripheralKind
	}{
		{"tpiu absent", TraceSink{Type: SinkTpiu, Config: config}, PeripheralTpiu},
		// SWO absent falls back to TPIU, which is absent too.
		{"swo fallback fails", TraceSink{Type: SinkSwo, Config: config}, PeripheralTpiu},
	} {
		t.Run(tc.name, func(t *testing.T) {
			probe := newMockProbe()
			controller := NewTraceController(probe, components)

			err := controller.ConfigureSink(tc.sink)

			var notFound *ComponentNotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("expected ComponentNotFoundError, got %v", err)
			}

			if notFound.Kind != tc.kind {
				t.Errorf("expected missing %s, got %s", tc.kind, notFound.Kind)
			}
		})
	}
}

func TestAddRemoveDataTrace(t *testing.T) {
	probe := newMockProbe()

	controller := NewTraceController(probe, testComponents(PeripheralDwt, PeripheralItm))

	if err := controller.AddDataTrace(1, 0x20000100); err != nil {
		t.Fatalf("AddDataTrace failed: %v", err)
	}

	if err := controller.RemoveDataTrace(1); err != nil {
		t.Fatalf("RemoveDataTrace failed: %v", err)
	}

	expected := []transaction{
		// unit 1 lives one stride above the base offsets
		{Op: "write", Address: testDwtBase + dwtCompOffset + unitStride, Value: 0x20000100},
		{Op: "write", Address: testDwtBase + dwtFunctionOffset + unitStride, Value: 0x803},
		{Op: "write", Address: testDwtBase + dwtFunctionOffset + unitStride, Value: 0x0},
	}

	if diff := cmp.Diff(expected, probe.writesTo(testDwtBase)); diff != "" {
		t.Errorf("unexpected DWT writes (-want +got):\n%s", diff)
	}
}

func TestEnableTracingPreservesOtherBits(t *testing.T) {
	probe := newMockProbe()
	probe.preset(demcrAddress, 0x01000000|0x1) // TRCENA plus an unrelated bit

	controller := NewTraceController(probe, nil)

	if err := controller.DisableTracing(); err != nil {
		t.Fatalf("DisableTracing failed: %v", err)
	}

	if probe.registers[demcrAddress] != 0x1 {
		t.Errorf("expected only TRCENA cleared, got 0x%08x", probe.registers[demcrAddress])
	}

	if err := controller.EnableTracing(); err != nil {
		t.Fatalf("EnableTracing failed: %v", err)
	}

	if probe.registers[demcrAddress] != 0x01000001 {
		t.Errorf("expected TRCENA set and other bits preserved, got 0x%08x", probe.registers[demcrAddress])
	}
}

func TestDisableTracingIdempotent(t *testing.T) {
	probe := newMockProbe()
	probe.preset(demcrAddress, 0x01000000)

	controller := NewTraceController(probe, nil)

	for i := 0; i < 2; i++ {
		if err := controller.DisableTracing(); err != nil {
			t.Fatalf("DisableTracing call %d failed: %v", i+1, err)
		}

		if probe.registers[demcrAddress]&(1<<demcrTrcEnaBit) != 0 {
			t.Errorf("TRCENA still set after DisableTracing call %d", i+1)
		}
	}
}

func TestFindComponentOrder(t *testing.T) {
	components := []Component{
		{Kind: PeripheralTmc, BaseAddress: 0x1000},
		{Kind: PeripheralTmc, BaseAddress: 0x2000},
	}

	component, err := findComponent(components, PeripheralTmc)
	if err != nil {
		t.Fatalf("findComponent failed: %v", err)
	}

	if component.BaseAddress != 0x1000 {
		t.Errorf("expected first matching component, got base 0x%x", component.BaseAddress)
	}

	if _, err := findComponent(components, PeripheralSwo); err == nil {
		t.Error("expected an error for an absent peripheral kind")
	}
}
