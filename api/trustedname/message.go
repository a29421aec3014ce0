// SPDX-License-Identifier: Apache-2.0

// Package trustedname implements the trusted name attestation protocol of the Ethereum app.
//
// A trusted name binds a human readable name to an address on a chain. The device issues a
// single-use challenge; an offline authority signs the canonical message built from the challenge
// and the binding; the device rebuilds the same message for the transaction it is about to sign
// and only shows the name if the signature verifies.
package trustedname

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

// KeyID selects the authority key that signed a trusted name.
type KeyID uint8

// AlgorithmID selects the signature algorithm of a trusted name.
type AlgorithmID uint8

const (
	// KeyIDTest is the key the device currently ships with.
	KeyIDTest KeyID = 1

	// AlgorithmECDSASHA256 is ECDSA over secp256k1 of the SHA-256 digest, DER encoded.
	AlgorithmECDSASHA256 AlgorithmID = 1
)

// Record is a name to address binding vouched for by an authority.
type Record struct {
	// Address is signed as supplied. The device always uses 20 byte addresses.
	Address     []byte
	Name        string
	ChainID     uint64
	KeyID       KeyID
	AlgorithmID AlgorithmID
}

// Validate checks that the record can be reproduced byte for byte by the device.
func (record *Record) Validate() error {
	if !utf8.ValidString(record.Name) {
		return errp.Newf("trusted name is not valid UTF-8: %q", record.Name)
	}
	return nil
}

// Message returns the canonical byte sequence covered by the attestation of the record for the
// given challenge:
//
//	4 bytes   challenge (big endian)
//	n bytes   address
//	m bytes   name (UTF-8)
//	8 bytes   chain id (big endian)
//	1 byte    key id
//	1 byte    algorithm id
func Message(challenge uint32, record *Record) []byte {
	msg := make([]byte, 0, 4+len(record.Address)+len(record.Name)+8+2)
	msg = binary.BigEndian.AppendUint32(msg, challenge)
	msg = append(msg, record.Address...)
	msg = append(msg, record.Name...)
	msg = binary.BigEndian.AppendUint64(msg, record.ChainID)
	msg = append(msg, byte(record.KeyID), byte(record.AlgorithmID))
	return msg
}
