// SPDX-License-Identifier: Apache-2.0

// Package ethapp contains the API to the Ethereum app running on a hardware wallet.
package ethapp

import (
	"errors"
	"fmt"

	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/util/semver"
)

// Communication contains functions needed to communicate with the device.
type Communication interface {
	// Query sends an APDU and returns the reply, including the trailing status word.
	Query([]byte) ([]byte, error)
	Close()
}

// Logger lets the device log errors, info and debug messages.
type Logger interface {
	Error(msg string, err error)
	Info(msg string)
	Debug(msg string)
}

// UnsupportedError is returned when a feature is not supported by the app version or product.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("This feature is supported from app version %s", string(e))
}

// ErrProductUnsupported is returned when a feature is left out of the app build for the product.
var ErrProductUnsupported = errors.New("feature not available on this product")

var (
	lowestSupportedEIP712Legacy = semver.NewSemVer(1, 5, 0)
	lowestSupportedTrustedNames = semver.NewSemVer(1, 10, 0)
)

// Device provides the API to communicate with the Ethereum app.
type Device struct {
	communication Communication

	// version is the app version. Nil until Init() if not known at construction.
	version *semver.SemVer
	// product is nil if not known.
	product *common.Product

	log Logger
}

// NewDevice creates a new instance of Device.
// version:
//
//	Can be given if known at the time of instantiation, e.g. by parsing the USB HID product
//	string. It must be provided if the app is too old to report it. If nil, Init() asks the app.
//
// product: same deal as with the version.
func NewDevice(
	version *semver.SemVer,
	product *common.Product,
	communication Communication,
	log Logger,
) *Device {
	return &Device{
		communication: communication,
		version:       version,
		product:       product,
		log:           log,
	}
}

// Init reads the app version if it was not provided.
func (device *Device) Init() error {
	if device.version != nil {
		return nil
	}
	config, err := device.AppConfiguration()
	if err != nil {
		return err
	}
	device.version = config.Version
	device.log.Info(fmt.Sprintf("app version: %s", device.version))
	return nil
}

// Version returns the app version. Nil before Init() if it was not provided.
func (device *Device) Version() *semver.SemVer {
	return device.version
}

// Product returns the product. Nil if unknown.
func (device *Device) Product() *common.Product {
	return device.product
}

// Close closes the device.
func (device *Device) Close() {
	device.communication.Close()
}

// atLeast returns false if the version is unknown.
func (device *Device) atLeast(version *semver.SemVer) bool {
	return device.version != nil && device.version.AtLeast(version)
}
