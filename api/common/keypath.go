// SPDX-License-Identifier: Apache-2.0

package common

import (
	"encoding/binary"

	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"github.com/ethereum/go-ethereum/accounts"
)

const (
	// HARDENED is the offset of hardened keypath elements.
	HARDENED = 0x80000000

	// MaxKeypathLength is the maximum number of keypath elements the app accepts.
	MaxKeypathLength = 10
)

// ParseKeypath parses a keypath such as "m/44'/60'/0'/0/0".
func ParseKeypath(keypath string) ([]uint32, error) {
	path, err := accounts.ParseDerivationPath(keypath)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return []uint32(path), nil
}

// EncodeKeypath serializes a keypath as its length followed by the big endian elements.
func EncodeKeypath(keypath []uint32) ([]byte, error) {
	if len(keypath) == 0 || len(keypath) > MaxKeypathLength {
		return nil, errp.Newf("keypath must have between 1 and %d elements, got %d",
			MaxKeypathLength, len(keypath))
	}
	encoded := make([]byte, 1, 1+4*len(keypath))
	encoded[0] = byte(len(keypath))
	for _, element := range keypath {
		encoded = binary.BigEndian.AppendUint32(encoded, element)
	}
	return encoded, nil
}

// DecodeKeypath parses a keypath serialized by EncodeKeypath at the start of data and returns the
// remaining bytes.
func DecodeKeypath(data []byte) ([]uint32, []byte, error) {
	if len(data) < 1 {
		return nil, nil, errp.New("missing keypath length")
	}
	length := int(data[0])
	if length == 0 || length > MaxKeypathLength {
		return nil, nil, errp.Newf("invalid keypath length %d", length)
	}
	data = data[1:]
	if len(data) < 4*length {
		return nil, nil, errp.New("keypath truncated")
	}
	keypath := make([]uint32, length)
	for i := range keypath {
		keypath[i] = binary.BigEndian.Uint32(data[4*i:])
	}
	return keypath, data[4*length:], nil
}
