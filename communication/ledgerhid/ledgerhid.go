// SPDX-License-Identifier: Apache-2.0

// Package ledgerhid implements the framing protocol for APDUs sent over USB HID.
package ledgerhid

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

const (
	packetSize = 64
	channel    = 0x0101
	tagAPDU    = 0x05

	// channel, tag, sequence
	headerSize = 5
)

// Communication sends APDUs to a device over HID and reads the replies.
type Communication struct {
	device io.ReadWriteCloser
	mutex  sync.Mutex
}

// NewCommunication creates a new Communication.
func NewCommunication(device io.ReadWriteCloser) *Communication {
	return &Communication{
		device: device,
		mutex:  sync.Mutex{},
	}
}

func newBuffer() *bytes.Buffer {
	return bytes.NewBuffer([]byte{})
}

func writeHeader(buf *bytes.Buffer, sequence uint16) {
	_ = binary.Write(buf, binary.BigEndian, uint16(channel))
	buf.WriteByte(tagAPDU)
	_ = binary.Write(buf, binary.BigEndian, sequence)
}

// encodeFrame splits msg into zero padded packets. The first packet carries the total length.
func encodeFrame(msg []byte) []byte {
	buf := newBuffer()
	if len(msg) == 0 {
		return buf.Bytes()
	}
	data := newBuffer()
	_ = binary.Write(data, binary.BigEndian, uint16(len(msg)))
	data.Write(msg)
	remaining := data.Bytes()
	for sequence := uint16(0); len(remaining) > 0; sequence++ {
		packet := newBuffer()
		writeHeader(packet, sequence)
		chunk := remaining[:min(len(remaining), packetSize-headerSize)]
		remaining = remaining[len(chunk):]
		packet.Write(chunk)
		packet.Write(make([]byte, packetSize-packet.Len()))
		buf.Write(packet.Bytes())
	}
	return buf.Bytes()
}

// SendFrame sends one message split over as many packets as needed.
func (communication *Communication) SendFrame(msg []byte) error {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.sendFrame(msg)
}

func (communication *Communication) sendFrame(msg []byte) error {
	if len(msg) > 0xffff {
		return errp.Newf("message too long: %d bytes", len(msg))
	}
	frame := encodeFrame(msg)
	// One HID report per packet.
	for offset := 0; offset < len(frame); offset += packetSize {
		packet := frame[offset : offset+packetSize]
		for len(packet) > 0 {
			written, err := communication.device.Write(packet)
			if err != nil {
				return errp.WithMessage(errp.WithStack(err), "failed to send message")
			}
			packet = packet[written:]
		}
	}
	return nil
}

func (communication *Communication) readPacket(sequence uint16) ([]byte, error) {
	packet := make([]byte, packetSize)
	readLen, err := io.ReadFull(communication.device, packet)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	if readLen < headerSize {
		return nil, errp.New("packet too short")
	}
	replyChannel := binary.BigEndian.Uint16(packet[0:2])
	replyTag := packet[2]
	replySequence := binary.BigEndian.Uint16(packet[3:5])
	if replyChannel != channel || replyTag != tagAPDU || replySequence != sequence {
		return nil, &FrameError{
			Channel:          replyChannel,
			Tag:              replyTag,
			Sequence:         replySequence,
			ExpectedSequence: sequence,
		}
	}
	return packet[headerSize:], nil
}

// ReadFrame reads one message, reassembling it from its packets.
func (communication *Communication) ReadFrame() ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.readFrame()
}

func (communication *Communication) readFrame() ([]byte, error) {
	payload, err := communication.readPacket(0)
	if err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return nil, errp.New("first packet lacks the message length")
	}
	length := int(binary.BigEndian.Uint16(payload[:2]))
	buf := newBuffer()
	buf.Write(payload[2:min(len(payload), 2+length)])
	for sequence := uint16(1); buf.Len() < length; sequence++ {
		payload, err := communication.readPacket(sequence)
		if err != nil {
			return nil, err
		}
		buf.Write(payload[:min(len(payload), length-buf.Len())])
	}
	return buf.Bytes(), nil
}

// Query sends an APDU and returns the reply, including the trailing status word. Blocking.
func (communication *Communication) Query(apdu []byte) ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	if err := communication.sendFrame(apdu); err != nil {
		return nil, err
	}
	return communication.readFrame()
}

// Close closes the underlying device.
func (communication *Communication) Close() {
	if err := communication.device.Close(); err != nil {
		panic(err)
	}
}
