// SPDX-License-Identifier: Apache-2.0

package ethapp

import (
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"github.com/ethapp-go/ethapp-api-go/util/semver"
)

// AppConfiguration is the reply of the get-app-configuration request.
type AppConfiguration struct {
	// Flags is a bitfield, e.g. whether blind signing is enabled.
	Flags   byte
	Version *semver.SemVer
}

const (
	// AppFlagBlindSigning is set if the user allows signing contract data blindly.
	AppFlagBlindSigning = 0x01
)

// AppConfiguration queries the app flags and version.
func (device *Device) AppConfiguration() (*AppConfiguration, error) {
	response, err := device.query(insGetAppConfiguration, 0x00, 0x00, nil)
	if err != nil {
		return nil, err
	}
	if len(response) != 4 {
		return nil, errp.Newf("unexpected app configuration length: %d", len(response))
	}
	return &AppConfiguration{
		Flags:   response[0],
		Version: semver.NewSemVer(uint16(response[1]), uint16(response[2]), uint16(response[3])),
	}, nil
}
