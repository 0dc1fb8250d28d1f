// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

import (
	"github.com/boljen/go-bitmap"
)

type SwoMode uint8 // line encodings for asynchronous trace output

const (
	SwoModeManchester SwoMode = 1 // asynchronous output with Manchester coding
	SwoModeUart               = 2 // asynchronous output with NRZ coding
)

// SwoConfig carries the pin parameters for the serial trace sinks.
type SwoConfig struct {
	// TraceClock is the frequency feeding the TPIU/SWO prescaler, in Hz.
	TraceClock uint32

	// Baud is the desired output baud rate in Hz.
	Baud uint32

	// Mode selects the line encoding.
	Mode SwoMode

	// ContinuousFormatting keeps the frame formatter enabled even over the
	// serial wire output.
	ContinuousFormatting bool
}

type SinkType uint8 // destinations for trace data

const (
	// Trace data is sent to the SWO peripheral. On targets where SWO and
	// TPIU are the same silicon block, the TPIU is configured instead.
	SinkSwo SinkType = iota

	// Trace data is sent to the TPIU in serial wire mode.
	SinkTpiu

	// Trace data is captured in internal trace memory for software readout.
	SinkTraceMemory
)

// TraceSink selects exactly one destination for trace data. Config is
// ignored for SinkTraceMemory.
type TraceSink struct {
	Type   SinkType
	Config SwoConfig
}

// The DWT architecturally supports at most 16 comparator units.
const maxComparatorUnits = 16

// TraceController sequences the CoreSight trace peripherals of one target.
// It borrows the probe and the discovered component list from the caller
// and holds no hardware state besides the frame decoder threaded between
// ReadTraceMemory calls and the bookkeeping of active watchpoint units.
type TraceController struct {
	probe       Probe
	components  []Component
	decoder     FrameDecoder
	activeUnits bitmap.Bitmap
}

func NewTraceController(probe Probe, components []Component) *TraceController {
	return &TraceController{
		probe:       probe,
		components:  components,
		decoder:     NewFrameDecoder(),
		activeUnits: bitmap.New(maxComparatorUnits),
	}
}

// ConfigureSink enables the trace sources (DWT, ITM) and programs the
// requested sink. Any failure aborts the sequence immediately; register
// writes already issued are not rolled back, and re-invoking restarts the
// full sequence from the beginning.
func (tc *TraceController) ConfigureSink(sink TraceSink) error {
	dwtComponent, err := findComponent(tc.components, PeripheralDwt)
	if err != nil {
		return err
	}

	dwt := NewDwt(tc.probe, dwtComponent)

	if err := dwt.Enable(); err != nil {
		return err
	}

	if err := dwt.EnableExceptionTrace(); err != nil {
		return err
	}

	itmComponent, err := findComponent(tc.components, PeripheralItm)
	if err != nil {
		return err
	}

	itm := NewItm(tc.probe, itmComponent)

	if err := itm.Unlock(); err != nil {
		return err
	}

	if err := itm.TxEnable(); err != nil {
		return err
	}

	switch sink.Type {
	case SinkTpiu:
		component, err := findComponent(tc.components, PeripheralTpiu)
		if err != nil {
			return err
		}

		return tc.configureTpiu(component, &sink.Config)

	case SinkSwo:
		component, err := findComponent(tc.components, PeripheralSwo)
		if err != nil {
			// On Cortex-M4 class targets SWO and TPIU are combined, so
			// configure the TPIU with the same parameters instead.
			logger.Debug("no standalone SWO block found, falling back to TPIU")

			component, err = findComponent(tc.components, PeripheralTpiu)
			if err != nil {
				return err
			}

			return tc.configureTpiu(component, &sink.Config)
		}

		swo := NewSwo(tc.probe, component)

		if err := swo.Unlock(); err != nil {
			return err
		}

		prescaler, err := swoPrescaler(&sink.Config)
		if err != nil {
			return err
		}

		if err := swo.SetPrescaler(prescaler); err != nil {
			return err
		}

		return swo.SetPinProtocol(uint32(sink.Config.Mode))

	case SinkTraceMemory:
		component, err := findComponent(tc.components, PeripheralTmc)
		if err != nil {
			return err
		}

		tmc := NewTmc(tc.probe, component)

		// Capture restart procedure from the TMC TRM: disable capture and
		// wait for the controller to drain before switching modes. The
		// poll has no timeout; a hung peripheral stalls the caller.
		if err := tmc.DisableCapture(); err != nil {
			return err
		}

		for {
			ready, err := tmc.Ready()
			if err != nil {
				return err
			}

			if ready {
				break
			}
		}

		if err := tmc.SetMode(TmcModeSoftwareFifo); err != nil {
			return err
		}

		return tmc.EnableCapture()

	default:
		return newUnsupportedConfigError("unknown trace sink type %d", sink.Type)
	}
}

// configureTpiu programs the TPIU for serial wire output.
func (tc *TraceController) configureTpiu(component *Component, config *SwoConfig) error {
	tpiu := NewTpiu(tc.probe, component)

	if err := tpiu.SetPortSize(1); err != nil {
		return err
	}

	prescaler, err := swoPrescaler(config)
	if err != nil {
		return err
	}

	if err := tpiu.SetPrescaler(prescaler); err != nil {
		return err
	}

	if err := tpiu.SetPinProtocol(uint32(config.Mode)); err != nil {
		return err
	}

	if config.ContinuousFormatting {
		// Set EnFCont for continuous formatting even over SWO.
		return tpiu.SetFormatter(0x102)
	}

	// Clear EnFCont to only pass through raw ITM/DWT data.
	return tpiu.SetFormatter(0x100)
}

func swoPrescaler(config *SwoConfig) (uint32, error) {
	if config.Baud == 0 || config.Baud > config.TraceClock {
		return 0, newUnsupportedConfigError(
			"cannot scale trace clock %d Hz to %d baud", config.TraceClock, config.Baud)
	}

	return config.TraceClock/config.Baud - 1, nil
}

// AddDataTrace configures DWT comparator `unit` to trace data accesses to
// `address`. The unit index is not validated against the hardware's
// comparator count; out of range units are ignored by the target.
func (tc *TraceController) AddDataTrace(unit int, address uint32) error {
	component, err := findComponent(tc.components, PeripheralDwt)
	if err != nil {
		return err
	}

	if err := NewDwt(tc.probe, component).EnableDataTrace(unit, address); err != nil {
		return err
	}

	if unit < maxComparatorUnits {
		tc.activeUnits.Set(unit, true)
	}

	logger.Debugf("data trace enabled on DWT unit %d for address 0x%08x", unit, address)

	return nil
}

// RemoveDataTrace stops data tracing on DWT comparator `unit`.
func (tc *TraceController) RemoveDataTrace(unit int) error {
	component, err := findComponent(tc.components, PeripheralDwt)
	if err != nil {
		return err
	}

	if unit < maxComparatorUnits && !tc.activeUnits.Get(unit) {
		logger.Debugf("DWT unit %d was not tracing", unit)
	}

	if err := NewDwt(tc.probe, component).DisableDataTrace(unit); err != nil {
		return err
	}

	if unit < maxComparatorUnits {
		tc.activeUnits.Set(unit, false)
	}

	return nil
}

// DEMCR gates all trace generation at the core level.
const (
	demcrAddress    = 0xE000EDFC
	demcrTrcEnaBit  = 24
)

// EnableTracing sets TRCENA in DEMCR to begin trace generation.
func (tc *TraceController) EnableTracing() error {
	return tc.setTraceEna(true)
}

// DisableTracing clears TRCENA in DEMCR to stop trace generation.
func (tc *TraceController) DisableTracing() error {
	return tc.setTraceEna(false)
}

func (tc *TraceController) setTraceEna(enabled bool) error {
	demcr, err := tc.probe.ReadWord32(demcrAddress)
	if err != nil {
		return err
	}

	demcr = setBits(demcr, demcrTrcEnaBit, 1, boolToBit(enabled))

	return tc.probe.WriteWord32(demcrAddress, demcr)
}
