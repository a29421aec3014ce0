// SPDX-License-Identifier: Apache-2.0

// Package speculos implements the APDU framing used over TCP by the Speculos emulator.
//
// A request is a 4 byte big endian length followed by the APDU. A reply is a 4 byte big endian
// length of the response data, the data and the 2 byte status word.
package speculos

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

const (
	statusWordSize = 2
	// maxFrameSize bounds the length prefix so a corrupt stream does not trigger a huge
	// allocation.
	maxFrameSize = 0x10000
)

// Communication sends APDUs over a stream connection to the emulator.
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

// DialOptions configures Dial.
type DialOptions struct {
	// Timeout of a single connection attempt.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first failed one.
	MaxRetries uint64
	// Notify is called after each failed attempt. Optional.
	Notify func(err error, wait time.Duration)
}

// Dial connects to the emulator at address (host:port), retrying with exponential backoff while
// the emulator is starting up.
func Dial(ctx context.Context, address string, options DialOptions) (*Communication, error) {
	dialer := &net.Dialer{Timeout: options.Timeout}
	var conn net.Conn
	operation := func() error {
		var err error
		conn, err = dialer.DialContext(ctx, "tcp", address)
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), options.MaxRetries),
		ctx,
	)
	if err := backoff.RetryNotify(operation, policy, options.Notify); err != nil {
		return nil, errp.WithMessagef(errp.WithStack(err), "could not connect to %s", address)
	}
	return NewCommunication(conn), nil
}

func encodeFrame(msg []byte) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(msg)))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(msg)))
	buf.Write(msg)
	return buf.Bytes()
}

func readLength(reader io.Reader) (int, error) {
	var length uint32
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return 0, errp.WithStack(err)
	}
	if length > maxFrameSize {
		return 0, errp.Newf("frame too large: %d bytes", length)
	}
	return int(length), nil
}

// SendFrame sends one length prefixed APDU.
func (communication *Communication) SendFrame(msg []byte) error {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.sendFrame(msg)
}

func (communication *Communication) sendFrame(msg []byte) error {
	if len(msg) > maxFrameSize {
		return errp.Newf("message too long: %d bytes", len(msg))
	}
	_, err := communication.device.Write(encodeFrame(msg))
	return errp.WithMessage(errp.WithStack(err), "failed to send message")
}

// ReadFrame reads one reply. The returned bytes are the response data followed by the status
// word.
func (communication *Communication) ReadFrame() ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.readFrame()
}

func (communication *Communication) readFrame() ([]byte, error) {
	length, err := readLength(communication.device)
	if err != nil {
		return nil, err
	}
	reply := make([]byte, length+statusWordSize)
	if _, err := io.ReadFull(communication.device, reply); err != nil {
		return nil, errp.WithStack(err)
	}
	return reply, nil
}

// Query sends an APDU and waits for the reply. Blocking.
func (communication *Communication) Query(apdu []byte) ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	if err := communication.sendFrame(apdu); err != nil {
		return nil, err
	}
	return communication.readFrame()
}

// Close closes the underlying connection.
func (communication *Communication) Close() {
	if err := communication.device.Close(); err != nil {
		panic(err)
	}
}

// ReadRequest reads one APDU as sent by a client. Used by servers emulating a device.
func ReadRequest(reader io.Reader) ([]byte, error) {
	length, err := readLength(reader)
	if err != nil {
		return nil, err
	}
	apdu := make([]byte, length)
	if _, err := io.ReadFull(reader, apdu); err != nil {
		return nil, errp.WithStack(err)
	}
	return apdu, nil
}

// WriteResponse writes one reply. response is the response data followed by the status word.
func WriteResponse(writer io.Writer, response []byte) error {
	if len(response) < statusWordSize {
		return errp.New("response lacks a status word")
	}
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(response)))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(response)-statusWordSize))
	buf.Write(response)
	_, err := writer.Write(buf.Bytes())
	return errp.WithStack(err)
}
