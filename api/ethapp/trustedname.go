// SPDX-License-Identifier: Apache-2.0

package ethapp

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

func (device *Device) checkTrustedNamesSupported() error {
	if device.product != nil && !device.product.SupportsTrustedNames() {
		return errp.WithStack(ErrProductUnsupported)
	}
	if !device.atLeast(lowestSupportedTrustedNames) {
		return UnsupportedError(lowestSupportedTrustedNames.String())
	}
	return nil
}

// GetChallenge returns the current challenge of the device. An attestation must be made for this
// challenge. The device rolls a new one after each transaction it checks a trusted name against.
func (device *Device) GetChallenge() (uint32, error) {
	if err := device.checkTrustedNamesSupported(); err != nil {
		return 0, err
	}
	response, err := device.query(insGetChallenge, 0x00, 0x00, nil)
	if err != nil {
		return 0, err
	}
	if len(response) != 4 {
		return 0, errp.Newf("unexpected challenge length: %d", len(response))
	}
	return binary.BigEndian.Uint32(response), nil
}

// ProvideTrustedName hands a trusted name and its attestation to the device. The device keeps it
// for the next transaction and shows the name instead of the recipient address if the attestation
// is valid for that transaction's address and chain id.
func (device *Device) ProvideTrustedName(
	name string,
	keyID trustedname.KeyID,
	algorithmID trustedname.AlgorithmID,
	signature []byte,
) error {
	if err := device.checkTrustedNamesSupported(); err != nil {
		return err
	}
	if !utf8.ValidString(name) {
		return errp.Newf("trusted name is not valid UTF-8: %q", name)
	}
	payload, err := trustedname.EncodeProvidePayload(&trustedname.Provided{
		Name:        name,
		KeyID:       keyID,
		AlgorithmID: algorithmID,
		Signature:   signature,
	})
	if err != nil {
		return err
	}
	_, err = device.query(insProvideTrustedName, 0x00, 0x00, payload)
	return err
}

// AttestAndProvideTrustedName fetches a challenge, has the attestor sign the record for it and
// provides the result to the device.
func (device *Device) AttestAndProvideTrustedName(
	attestor *trustedname.Attestor,
	record *trustedname.Record,
) error {
	challenge, err := device.GetChallenge()
	if err != nil {
		return err
	}
	signature, err := attestor.Attest(challenge, record)
	if err != nil {
		return err
	}
	return device.ProvideTrustedName(record.Name, record.KeyID, record.AlgorithmID, signature)
}
