// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// this code is mainly inspired and based on the openocd project source code
// for detailed information see

// https://sourceforge.net/p/openocd/code

package gocoresight

import (
	"errors"

	"github.com/google/gousb"
	log "github.com/sirupsen/logrus"
)

const StLinkAllVids = 0xFFFF
const StLinkAllPids = 0xFFFF

var stLinkSupportedVids = []gousb.ID{0x0483} // STLINK Vendor ID
var stLinkSupportedPids = []gousb.ID{0x3744, 0x3748, 0x374b, 0x374d, 0x374e, 0x374f, 0x3752, 0x3753}

const stLinkV1Pid = gousb.ID(0x3744)

// StLink is an ST-Link debug probe attached over USB, driven through its
// api v2 command set in SWD mode. It implements the Probe interface; all
// register and word access goes through 32-bit target memory transactions.
type StLink struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface

	rxEndpoint *gousb.InEndpoint
	txEndpoint *gousb.OutEndpoint
}

type StLinkConfig struct {
	Vid    gousb.ID
	Pid    gousb.ID
	Serial string
}

func NewStLinkConfig(vid gousb.ID, pid gousb.ID, serial string) *StLinkConfig {
	return &StLinkConfig{
		Vid:    vid,
		Pid:    pid,
		Serial: serial,
	}
}

// NewStLink opens the first ST-Link matching the config, claims its debug
// interface and enters SWD debug mode.
func NewStLink(config *StLinkConfig) (*StLink, error) {
	var err error
	var devices []*gousb.Device

	handle := &StLink{}

	vids := stLinkSupportedVids
	pids := stLinkSupportedPids

	if config.Vid != StLinkAllVids {
		vids = []gousb.ID{config.Vid}
	}

	if config.Pid != StLinkAllPids {
		pids = []gousb.ID{config.Pid}
	}

	devices, err = usbFindDevices(vids, pids)

	if err != nil {
		return nil, err
	}

	if len(devices) == 0 {
		return nil, errors.New("could not find any ST-Link connected to computer")
	}

	if config.Serial == "" && len(devices) > 1 {
		return nil, errors.New("could not identify exact stlink by given parameters. (Perhaps a serial no is missing?)")
	} else if len(devices) == 1 {
		handle.usbDevice = devices[0]
	} else {
		for _, dev := range devices {
			devSerialNo, _ := dev.SerialNumber()

			log.Debugf("Compare serial no %s with number %s", devSerialNo, config.Serial)

			if devSerialNo == config.Serial {
				handle.usbDevice = dev

				log.Infof("Found st link with serial number %s", devSerialNo)
			}
		}
	}

	if handle.usbDevice == nil {
		return nil, errors.New("could not find ST-Link by given parameters")
	}

	if handle.usbDevice.Desc.Product == stLinkV1Pid {
		return nil, errors.New("ST-Link V1 is not supported")
	}

	handle.usbConfig, err = handle.usbDevice.Config(1)
	if err != nil {
		log.Debug(err)
		return nil, errors.New("could not request configuration #1 for st-link debugger")
	}

	handle.usbInterface, err = handle.usbConfig.Interface(0, 0)
	if err != nil {
		log.Debug(err)
		return nil, errors.New("could not claim interface 0,0 for st-link debugger")
	}

	handle.rxEndpoint, err = handle.usbInterface.InEndpoint(usbRxEndpointNo ^ usbEndpointIn)
	if err != nil {
		return nil, errors.New("could not resolve IN endpoint of st-link debugger")
	}

	txEndpointNo := usbTxEndpointNo

	switch handle.usbDevice.Desc.Product {
	case gousb.ID(0x374b), gousb.ID(0x3752), // V2.1
		gousb.ID(0x374d), gousb.ID(0x374e), gousb.ID(0x374f), gousb.ID(0x3753): // V3
		txEndpointNo = usbTxEndpointApi2v1
	}

	handle.txEndpoint, err = handle.usbInterface.OutEndpoint(txEndpointNo)
	if err != nil {
		return nil, errors.New("could not resolve OUT endpoint of st-link debugger")
	}

	if err := handle.usbModeEnterSwd(); err != nil {
		handle.Close()
		return nil, err
	}

	return handle, nil
}

// Close exits debug mode and releases the USB interface.
func (h *StLink) Close() {
	if h.usbInterface != nil {
		ctx := h.initTransfer(transferIncoming)

		ctx.cmdBuf.WriteByte(cmdDebug)
		ctx.cmdBuf.WriteByte(debugExit)

		if err := h.usbTransferNoErrCheck(ctx, 0); err != nil {
			log.Debug("could not exit debug mode on close ", err)
		}

		h.usbInterface.Close()
	}

	if h.usbConfig != nil {
		h.usbConfig.Close()
	}

	if h.usbDevice != nil {
		h.usbDevice.Close()
	}
}

func (h *StLink) usbModeEnterSwd() error {
	ctx := h.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugApiV2Enter)
	ctx.cmdBuf.WriteByte(debugEnterSwdNoReset)

	return h.usbCmdAllowRetry(ctx, 2)
}

// ReadWord32 reads one aligned 32-bit word from target memory.
func (h *StLink) ReadWord32(address uint32) (uint32, error) {
	if address%4 != 0 {
		return 0, newUsbError("invalid data alignment", ErrorTargetUnalignedAccess)
	}

	ctx := h.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugReadMem32Bit)
	ctx.cmdBuf.WriteUint32LE(address)
	ctx.cmdBuf.WriteUint16LE(4)

	if err := h.usbTransferNoErrCheck(ctx, 4); err != nil {
		return 0, err
	}

	if err := h.usbGetReadWriteStatus(); err != nil {
		return 0, err
	}

	return ctx.dataBuf.ReadUint32LE(), nil
}

// WriteWord32 writes one aligned 32-bit word to target memory.
func (h *StLink) WriteWord32(address uint32, value uint32) error {
	if address%4 != 0 {
		return newUsbError("invalid data alignment", ErrorTargetUnalignedAccess)
	}

	ctx := h.initTransfer(transferOutgoing)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugWriteMem32Bit)
	ctx.cmdBuf.WriteUint32LE(address)
	ctx.cmdBuf.WriteUint16LE(4)

	ctx.dataBuf.WriteUint32LE(value)

	if err := h.usbTransferNoErrCheck(ctx, 4); err != nil {
		return err
	}

	return h.usbGetReadWriteStatus()
}

// ReadRegister reads a memory mapped debug register.
func (h *StLink) ReadRegister(address uint32) (uint32, error) {
	return h.ReadWord32(address)
}

// WriteRegister writes a memory mapped debug register.
func (h *StLink) WriteRegister(address uint32, value uint32) error {
	return h.WriteWord32(address, value)
}
