// SPDX-License-Identifier: Apache-2.0

package ledgerhid

import "fmt"

// FrameError is returned when a reply packet does not carry the expected header.
type FrameError struct {
	Channel  uint16
	Tag      byte
	Sequence uint16
	// ExpectedSequence is the sequence number the packet should have had.
	ExpectedSequence uint16
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("unexpected frame: channel %#04x, tag %#02x, sequence %d (expected %d)",
		e.Channel, e.Tag, e.Sequence, e.ExpectedSequence)
}

// IsWrongChannel returns true if the reply came in on another channel, which happens when the
// device is not running the app in APDU mode.
func (e *FrameError) IsWrongChannel() bool {
	return e.Channel != channel
}
