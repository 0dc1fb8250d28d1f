// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

import (
	"fmt"
)

// ComponentNotFoundError is returned when a requested CoreSight peripheral
// is not present in the component list supplied by ROM table discovery.
// It is fatal to the requested operation only; the caller may retry with
// a different trace sink.
type ComponentNotFoundError struct {
	Kind PeripheralKind
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("no %s component found on target", e.Kind)
}

func newComponentNotFoundError(kind PeripheralKind) error {
	return &ComponentNotFoundError{Kind: kind}
}

// UnsupportedConfigError is returned when a requested trace configuration
// cannot be programmed into the hardware, e.g. a baud rate the prescaler
// cannot express for the given trace clock.
type UnsupportedConfigError struct {
	reason string
}

func (e *UnsupportedConfigError) Error() string {
	return e.reason
}

func newUnsupportedConfigError(format string, args ...interface{}) error {
	return &UnsupportedConfigError{reason: fmt.Sprintf(format, args...)}
}

type UsbErrorCode int

const (
	ErrorOK                    UsbErrorCode = 0
	ErrorWait                               = -1
	ErrorFail                               = -2
	ErrorTargetUnalignedAccess              = -3
	ErrorCommandNotFound                    = -4
)

// usbError wraps an ST-Link status byte as a library error. Wait statuses
// are retried by the transfer layer, everything else propagates to the
// caller unchanged.
type usbError struct {
	errorString  string
	UsbErrorCode UsbErrorCode
}

func (e *usbError) Error() string {
	return e.errorString
}

func newUsbError(msg string, code UsbErrorCode) error {
	return &usbError{msg, code}
}
