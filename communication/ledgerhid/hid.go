// SPDX-License-Identifier: Apache-2.0

package ledgerhid

import (
	"io"

	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"github.com/karalabe/hid"
)

type hidDevice struct {
	device hid.Device
}

// NewHidDevice wraps an opened HID device so it can be passed to NewCommunication.
func NewHidDevice(device hid.Device) io.ReadWriteCloser {
	return &hidDevice{device: device}
}

func (d *hidDevice) Read(p []byte) (int, error) {
	return d.device.Read(p)
}

func (d *hidDevice) Write(p []byte) (int, error) {
	return d.device.Write(p)
}

func (d *hidDevice) Close() error {
	return d.device.Close()
}

// IsAPDUInterface returns true if the HID interface is the one the app listens on for APDUs.
func IsAPDUInterface(deviceInfo *hid.DeviceInfo) bool {
	return deviceInfo.VendorID == common.VendorID &&
		(deviceInfo.UsagePage == common.HIDUsagePage || deviceInfo.Interface == 0)
}

// Find returns the first connected device exposing the APDU interface.
func Find() (*hid.DeviceInfo, error) {
	infos, err := hid.Enumerate(common.VendorID, 0)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	for idx := range infos {
		deviceInfo := &infos[idx]
		if IsAPDUInterface(deviceInfo) {
			return deviceInfo, nil
		}
	}
	return nil, errp.New("could not find a device")
}
