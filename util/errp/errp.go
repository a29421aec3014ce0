// SPDX-License-Identifier: Apache-2.0

// Package errp wraps github.com/pkg/errors so that errors created in this module carry a stack
// trace. All functions return nil if the passed error is nil.
package errp

import (
	"github.com/pkg/errors"
)

// New returns an error with the supplied message and the current stack.
func New(message string) error {
	return errors.New(message)
}

// Newf formats according to a format specifier and returns it as an error with the current stack.
func Newf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// WithMessage annotates err with a new message.
func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

// WithMessagef annotates err with a formatted message.
func WithMessagef(err error, format string, args ...interface{}) error {
	return errors.WithMessagef(err, format, args...)
}

// Wrap annotates err with a stack trace and a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Cause returns the underlying cause of the error.
func Cause(err error) error {
	return errors.Cause(err)
}
