// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// this code is mainly inspired and based on the openocd project source code
// for detailed information see

// https://sourceforge.net/p/openocd/code

package gocoresight

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type usbTransferEndpoint uint8

const (
	transferIncoming usbTransferEndpoint = 0
	transferOutgoing                     = 1
)

type transferCtx struct {
	endpoint usbTransferEndpoint

	cmdBuf  *Buffer
	dataBuf *Buffer
}

func (ctx *transferCtx) DataBytes() []byte {
	return ctx.dataBuf.Bytes()
}

func (h *StLink) initTransfer(endpoint usbTransferEndpoint) *transferCtx {
	return &transferCtx{
		endpoint: endpoint,
		cmdBuf:   NewBuffer(cmdBufferSize),
		dataBuf:  NewBuffer(dataBufferSize),
	}
}

func (h *StLink) usbTransferNoErrCheck(ctx *transferCtx, size uint32) error {
	cmd := make([]byte, cmdSizeV2)
	copy(cmd, ctx.cmdBuf.Bytes())

	_, err := usbWrite(h.txEndpoint, cmd)

	if err != nil {
		return err
	}

	if ctx.endpoint == transferOutgoing && size > 0 {
		time.Sleep(time.Millisecond * 10)

		_, err = usbWrite(h.txEndpoint, ctx.dataBuf.Bytes()[:size])

		if err != nil {
			return err
		}
	} else if ctx.endpoint == transferIncoming && size > 0 {
		buffer := make([]byte, size)

		bytesRead, err := usbRead(h.rxEndpoint, buffer)

		if err != nil {
			return err
		}

		ctx.dataBuf.Write(buffer[:bytesRead])
	}

	return nil
}

func (h *StLink) usbTransferErrCheck(ctx *transferCtx, size uint32) error {
	err := h.usbTransferNoErrCheck(ctx, size)

	if err != nil {
		return err
	}

	return h.usbErrorCheck(ctx)
}

/** Issue an STLINK command via USB transfer, with retries on any wait status
  responses. Works for commands where the STLINK_DEBUG status is returned in
  the first byte of the response packet.
*/
func (h *StLink) usbCmdAllowRetry(ctx *transferCtx, size uint32) error {
	var retries int = 0

	for {
		err := h.usbTransferNoErrCheck(ctx, size)
		if err != nil {
			return err
		}

		err = h.usbErrorCheck(ctx)

		if err != nil {
			stlinkError, ok := err.(*usbError)

			if ok && stlinkError.UsbErrorCode == ErrorWait && retries < maximumWaitRetries {
				var delayUs time.Duration = (1 << retries) * 1000

				retries++
				log.Debugf("cmdAllowRetry ERROR_WAIT, retry %d, delaying %d microseconds", retries, delayUs)
				time.Sleep(delayUs * 1000)

				ctx.dataBuf.Reset()
				continue
			}
		}

		return err
	}
}

func (h *StLink) usbGetReadWriteStatus() error {
	ctx := h.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugApiV2GetLastRWStatus)

	return h.usbTransferErrCheck(ctx, 2)
}

/** Converts an STLINK status code held in the first byte of a response to a
  library error, logs any error/wait status as debug output.
*/
func (h *StLink) usbErrorCheck(ctx *transferCtx) error {
	if ctx.dataBuf.Len() == 0 {
		return newUsbError("no status byte in stlink response", ErrorFail)
	}

	status := ctx.DataBytes()[0]

	switch status {
	case debugErrOk:
		return nil

	case debugErrFault:
		return newUsbError(fmt.Sprintf("SWD fault response (0x%x)", debugErrFault), ErrorFail)

	case swdApWait:
		return newUsbError(fmt.Sprintf("wait status SWD_AP_WAIT (0x%x)", swdApWait), ErrorWait)

	case swdDpWait:
		return newUsbError(fmt.Sprintf("wait status SWD_DP_WAIT (0x%x)", swdDpWait), ErrorWait)

	case swdApFault:
		return newUsbError("STLINK_SWD_AP_FAULT", ErrorFail)

	case swdApError:
		return newUsbError("STLINK_SWD_AP_ERROR", ErrorFail)

	case swdApParityError:
		return newUsbError("STLINK_SWD_AP_PARITY_ERROR", ErrorFail)

	case swdDpFault:
		return newUsbError("STLINK_SWD_DP_FAULT", ErrorFail)

	case swdDpError:
		return newUsbError("STLINK_SWD_DP_ERROR", ErrorFail)

	case swdDpParityError:
		return newUsbError("STLINK_SWD_DP_PARITY_ERROR", ErrorFail)

	case swdApWdataError:
		return newUsbError("STLINK_SWD_AP_WDATA_ERROR", ErrorFail)

	case swdApStickyError:
		return newUsbError("STLINK_SWD_AP_STICKY_ERROR", ErrorFail)

	case swdApStickyOrunError:
		return newUsbError("STLINK_SWD_AP_STICKYORUN_ERROR", ErrorFail)

	case badApError:
		return newUsbError("STLINK_BAD_AP_ERROR", ErrorFail)

	default:
		return newUsbError(fmt.Sprintf("unknown/unexpected STLINK status code 0x%x", status), ErrorFail)
	}
}
