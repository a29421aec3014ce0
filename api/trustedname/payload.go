// SPDX-License-Identifier: Apache-2.0

package trustedname

import (
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

// Provided is the content of a provide-trusted-name request. The address and chain id are not
// part of it: the device takes them from the transaction it signs next.
type Provided struct {
	Name        string
	KeyID       KeyID
	AlgorithmID AlgorithmID
	Signature   []byte
}

// Record returns the record the device checks the signature against when signing a transaction
// to address on chainID.
func (provided *Provided) Record(address []byte, chainID uint64) *Record {
	return &Record{
		Address:     address,
		Name:        provided.Name,
		ChainID:     chainID,
		KeyID:       provided.KeyID,
		AlgorithmID: provided.AlgorithmID,
	}
}

// EncodeProvidePayload serializes a provide-trusted-name request:
//
//	1 byte    name length
//	n bytes   name
//	1 byte    key id
//	1 byte    algorithm id
//	1 byte    signature length
//	m bytes   signature
func EncodeProvidePayload(provided *Provided) ([]byte, error) {
	if len(provided.Name) > 0xff {
		return nil, errp.Newf("trusted name too long: %d bytes", len(provided.Name))
	}
	if len(provided.Signature) > 0xff {
		return nil, errp.Newf("trusted name signature too long: %d bytes", len(provided.Signature))
	}
	payload := make([]byte, 0, 4+len(provided.Name)+len(provided.Signature))
	payload = append(payload, byte(len(provided.Name)))
	payload = append(payload, provided.Name...)
	payload = append(payload, byte(provided.KeyID), byte(provided.AlgorithmID))
	payload = append(payload, byte(len(provided.Signature)))
	payload = append(payload, provided.Signature...)
	return payload, nil
}

// DecodeProvidePayload parses a provide-trusted-name request. Truncated input and trailing bytes
// are rejected.
func DecodeProvidePayload(data []byte) (*Provided, error) {
	reader := payloadReader{data: data}
	nameLength, err := reader.readByte("name length")
	if err != nil {
		return nil, err
	}
	name, err := reader.readBytes(int(nameLength), "name")
	if err != nil {
		return nil, err
	}
	keyID, err := reader.readByte("key id")
	if err != nil {
		return nil, err
	}
	algorithmID, err := reader.readByte("algorithm id")
	if err != nil {
		return nil, err
	}
	signatureLength, err := reader.readByte("signature length")
	if err != nil {
		return nil, err
	}
	signature, err := reader.readBytes(int(signatureLength), "signature")
	if err != nil {
		return nil, err
	}
	if remaining := len(data) - reader.offset; remaining > 0 {
		return nil, errp.Newf("%d trailing bytes after signature", remaining)
	}
	return &Provided{
		Name:        string(name),
		KeyID:       KeyID(keyID),
		AlgorithmID: AlgorithmID(algorithmID),
		Signature:   signature,
	}, nil
}

type payloadReader struct {
	data   []byte
	offset int
}

func (reader *payloadReader) readByte(field string) (byte, error) {
	value, err := reader.readBytes(1, field)
	if err != nil {
		return 0, err
	}
	return value[0], nil
}

func (reader *payloadReader) readBytes(length int, field string) ([]byte, error) {
	if len(reader.data)-reader.offset < length {
		return nil, errp.Newf("payload truncated at %s", field)
	}
	value := make([]byte, length)
	copy(value, reader.data[reader.offset:reader.offset+length])
	reader.offset += length
	return value, nil
}
