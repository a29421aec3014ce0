// SPDX-License-Identifier: Apache-2.0

package ledgerhid

import (
	"bytes"
	"testing"

	"github.com/karalabe/hid"
	"github.com/stretchr/testify/require"
)

// hidMock overrides the calls used for APDU exchange. Other hid.Device methods are not called.
type hidMock struct {
	hid.Device
	written bytes.Buffer
	reply   bytes.Buffer
	closed  bool
}

func (device *hidMock) Write(p []byte) (int, error) { return device.written.Write(p) }
func (device *hidMock) Read(p []byte) (int, error)  { return device.reply.Read(p) }
func (device *hidMock) Close() error {
	device.closed = true
	return nil
}

func TestHidDevice(t *testing.T) {
	device := &hidMock{}
	device.reply.Write(encodeFrame([]byte{0x90, 0x00}))

	communication := NewCommunication(NewHidDevice(device))
	reply, err := communication.Query([]byte{0xe0, 0x06, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, []byte{0x90, 0x00}, reply)
	require.Equal(t, encodeFrame([]byte{0xe0, 0x06, 0x00, 0x00, 0x00}), device.written.Bytes())

	communication.Close()
	require.True(t, device.closed)
}
