// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gocoresight

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/google/gousb"
)

var usbCtx *gousb.Context = nil

func InitializeUSB() error {
	if usbCtx == nil {
		usbCtx = gousb.NewContext()

		if usbCtx != nil {
			log.Debug("Initialized libusb...")
			return nil
		} else {
			return errors.New("could not initialize libusb")
		}
	} else {
		log.Warn("USB already initialized!")
		return nil
	}
}

func CloseUSB() {
	if usbCtx != nil {
		usbCtx.Close()
		usbCtx = nil
	} else {
		log.Warn("Could not close uninitialized usb context")
	}
}

func usbFindDevices(vids []gousb.ID, pids []gousb.ID) ([]*gousb.Device, error) {
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if idExists(vids, desc.Vendor) && idExists(pids, desc.Product) {
			log.Infof("Found USB device [%04x:%04x] on bus %03d:%03d",
				uint16(desc.Vendor), uint16(desc.Product), desc.Bus, desc.Address)

			return true
		} else {
			return false
		}
	})

	if err == nil {
		log.Infof("Found %d matching devices based on vendor and product id list", len(devices))
		return devices, nil
	} else {
		log.Error("Got error during usb device scan ", err)
		return nil, err
	}
}

func usbWrite(endpoint *gousb.OutEndpoint, buffer []byte) (int, error) {
	bytesWritten, err := endpoint.Write(buffer)

	if err != nil {
		return -1, err
	} else {
		log.Tracef("Wrote %d bytes to endpoint", bytesWritten)
		return bytesWritten, nil
	}
}

func usbRead(endpoint *gousb.InEndpoint, buffer []byte) (int, error) {
	bytesRead, err := endpoint.Read(buffer)

	if err != nil {
		return -1, err
	} else {
		log.Tracef("Read %d bytes from in endpoint", bytesRead)
		return bytesRead, nil
	}
}

func idExists(slice []gousb.ID, item gousb.ID) bool {
	for _, element := range slice {
		if element == item {
			return true
		}
	}

	return false
}
