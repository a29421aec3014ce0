// SPDX-License-Identifier: Apache-2.0

// Package mocks contains the mock implementations to be used in testing.
package mocks

// Communication is a mock implementation of ethapp.Communication.
type Communication struct {
	MockQuery func([]byte) ([]byte, error)
	MockClose func()
}

// Query implements ethapp.Communication.
func (communication *Communication) Query(msg []byte) ([]byte, error) {
	return communication.MockQuery(msg)
}

// Close implements ethapp.Communication.
func (communication *Communication) Close() {
	if communication.MockClose != nil {
		communication.MockClose()
	}
}

// Logger is a no-op implementation of ethapp.Logger.
type Logger struct{}

// Error implements ethapp.Logger.
func (logger *Logger) Error(msg string, err error) {}

// Info implements ethapp.Logger.
func (logger *Logger) Info(msg string) {}

// Debug implements ethapp.Logger.
func (logger *Logger) Debug(msg string) {}
