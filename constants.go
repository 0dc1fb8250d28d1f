// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// command and status values from the openocd project source code,
// see https://sourceforge.net/p/openocd/code

package gocoresight

// usb endpoint definitions
const (
	usbEndpointIn  = 0x80
	usbEndpointOut = 0x00

	usbRxEndpointNo = 1 | usbEndpointIn
	usbTxEndpointNo = 2 | usbEndpointOut

	usbTxEndpointApi2v1 = 1 | usbEndpointOut
)

// command buffer sizes
const (
	cmdBufferSize  = 31
	dataBufferSize = 4096
	cmdSizeV2      = 16
)

// top level stlink commands
const (
	cmdGetVersion     = 0xF1
	cmdDebug          = 0xF2
	cmdGetCurrentMode = 0xF5
)

// debug subcommands (api v2)
const (
	debugReadMem32Bit       = 0x07
	debugWriteMem32Bit      = 0x08
	debugExit               = 0x21
	debugApiV2Enter         = 0x30
	debugApiV2GetLastRWStatus = 0x3B

	debugEnterSwdNoReset = 0xA3
)

// stlink status bytes
const (
	debugErrOk    = 0x80
	debugErrFault = 0x81

	swdApWait            = 0x10
	swdApFault           = 0x11
	swdApError           = 0x12
	swdApParityError     = 0x13
	swdDpWait            = 0x14
	swdDpFault           = 0x15
	swdDpError           = 0x16
	swdDpParityError     = 0x17
	swdApWdataError      = 0x18
	swdApStickyError     = 0x19
	swdApStickyOrunError = 0x1A
	badApError           = 0x1D
)

const maximumWaitRetries = 8
