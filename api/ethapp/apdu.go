// SPDX-License-Identifier: Apache-2.0

package ethapp

import (
	"encoding/binary"
	"fmt"

	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

const (
	cla = 0xe0

	insGetPublicKey        = 0x02
	insSignTransaction     = 0x04
	insGetAppConfiguration = 0x06
	insSignEIP712          = 0x0c
	insGetChallenge        = 0x20
	insProvideTrustedName  = 0x22

	p1First = 0x00
	p1More  = 0x80

	p1NoDisplay = 0x00
	p1Display   = 0x01

	p2NoChainCode = 0x00

	// Legacy EIP-712 mode: the host sends the domain and message hashes.
	p2EIP712Hashes = 0x00

	maxChunkSize = 0xff
)

// Status words.
const (
	StatusOK                     = 0x9000
	StatusWrongDataLength        = 0x6700
	StatusSecurityStatus         = 0x6982
	StatusConditionNotSatisfied  = 0x6985
	StatusInvalidData            = 0x6a80
	StatusInsufficientMemory     = 0x6a84
	StatusIncorrectP1P2          = 0x6b00
	StatusInstructionUnsupported = 0x6d00
	StatusClassUnsupported       = 0x6e00
)

var statusDescriptions = map[uint16]string{
	StatusWrongDataLength:        "wrong data length",
	StatusSecurityStatus:         "device locked",
	StatusConditionNotSatisfied:  "denied by the user",
	StatusInvalidData:            "invalid data",
	StatusInsufficientMemory:     "insufficient memory",
	StatusIncorrectP1P2:          "incorrect P1/P2",
	StatusInstructionUnsupported: "instruction not supported",
	StatusClassUnsupported:       "class not supported, is the app open?",
}

// StatusError is returned when the app replies with a status word other than StatusOK.
type StatusError struct {
	StatusWord uint16
}

// Error implements error.
func (e *StatusError) Error() string {
	description, ok := statusDescriptions[e.StatusWord]
	if !ok {
		description = "unknown error"
	}
	return fmt.Sprintf("app returned status %#04x: %s", e.StatusWord, description)
}

// IsUserAbort returns true if the user rejected the request on the device.
func (e *StatusError) IsUserAbort() bool {
	return e.StatusWord == StatusConditionNotSatisfied
}

func encodeAPDU(ins, p1, p2 byte, data []byte) ([]byte, error) {
	if len(data) > maxChunkSize {
		return nil, errp.Newf("APDU data too long: %d bytes", len(data))
	}
	apdu := make([]byte, 0, 5+len(data))
	apdu = append(apdu, cla, ins, p1, p2, byte(len(data)))
	return append(apdu, data...), nil
}

// query sends one APDU and returns the response data without the status word.
func (device *Device) query(ins, p1, p2 byte, data []byte) ([]byte, error) {
	apdu, err := encodeAPDU(ins, p1, p2, data)
	if err != nil {
		return nil, err
	}
	device.log.Debug(fmt.Sprintf("sending APDU %x", apdu))
	reply, err := device.communication.Query(apdu)
	if err != nil {
		return nil, err
	}
	if len(reply) < 2 {
		return nil, errp.New("reply lacks a status word")
	}
	response, statusWord := reply[:len(reply)-2], binary.BigEndian.Uint16(reply[len(reply)-2:])
	if statusWord != StatusOK {
		return nil, &StatusError{StatusWord: statusWord}
	}
	return response, nil
}

// queryChunked sends data split over as many APDUs as needed and returns the response to the
// last one. The first chunk is sent with P1=0x00, the following ones with P1=0x80.
func (device *Device) queryChunked(ins, p2 byte, data []byte) ([]byte, error) {
	p1 := byte(p1First)
	for {
		chunk := data[:min(len(data), maxChunkSize)]
		data = data[len(chunk):]
		response, err := device.query(ins, p1, p2, chunk)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return response, nil
		}
		p1 = p1More
	}
}
