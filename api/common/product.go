// SPDX-License-Identifier: Apache-2.0

// Package common contains definitions shared by the device APIs and the transports.
package common

import (
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

// Product enumerates the hardware wallet models the Ethereum app runs on.
type Product string

const (
	// ProductNanoS is the original Nano S.
	ProductNanoS Product = "nanos"
	// ProductNanoX is the Nano X.
	ProductNanoX Product = "nanox"
	// ProductNanoSPlus is the Nano S Plus.
	ProductNanoSPlus Product = "nanosp"
	// ProductStax is the Stax.
	ProductStax Product = "stax"
	// ProductFlex is the Flex.
	ProductFlex Product = "flex"
)

const (
	// VendorID is the USB vendor ID of all supported devices.
	VendorID = 0x2c97

	// HIDUsagePage is the HID usage page of the APDU interface.
	HIDUsagePage = 0xffa0
)

// The upper byte of the USB product ID identifies the model.
var productIDPrefixes = map[byte]Product{
	0x10: ProductNanoS,
	0x40: ProductNanoX,
	0x50: ProductNanoSPlus,
	0x60: ProductStax,
	0x70: ProductFlex,
}

// ProductFromUSBProductID returns the product identified by the given USB product ID.
func ProductFromUSBProductID(productID uint16) (Product, error) {
	product, ok := productIDPrefixes[byte(productID>>8)]
	if !ok {
		return "", errp.Newf("unrecognized product id: %#04x", productID)
	}
	return product, nil
}

// ProductFromModelName parses a model name as used by the Speculos emulator ("nanos", "nanox",
// "nanosp", "stax", "flex").
func ProductFromModelName(name string) (Product, error) {
	switch product := Product(name); product {
	case ProductNanoS, ProductNanoX, ProductNanoSPlus, ProductStax, ProductFlex:
		return product, nil
	default:
		return "", errp.Newf("unrecognized model name: %s", name)
	}
}

// SupportsTrustedNames returns true if the app build for this product includes the trusted name
// feature. The Nano S build leaves it out for lack of memory.
func (product Product) SupportsTrustedNames() bool {
	return product != ProductNanoS
}
