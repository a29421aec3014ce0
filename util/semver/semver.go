// SPDX-License-Identifier: Apache-2.0

// Package semver parses and compares app versions of the form major.minor.patch.
package semver

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

// SemVer models a semantic version.
type SemVer struct {
	major uint16
	minor uint16
	patch uint16
}

var semVerRegex = regexp.MustCompile(`^v?([0-9]+)\.([0-9]+)\.([0-9]+)$`)

// NewSemVer creates a new SemVer.
func NewSemVer(major, minor, patch uint16) *SemVer {
	return &SemVer{major: major, minor: minor, patch: patch}
}

// NewSemVerFromString parses a version such as "1.10.3" or "v1.10.3".
func NewSemVerFromString(version string) (*SemVer, error) {
	match := semVerRegex.FindStringSubmatch(version)
	if match == nil {
		return nil, errp.Newf("'%s' is not a valid version", version)
	}
	parts := make([]uint16, 3)
	for i := range parts {
		value, err := strconv.ParseUint(match[i+1], 10, 16)
		if err != nil {
			return nil, errp.WithStack(err)
		}
		parts[i] = uint16(value)
	}
	return NewSemVer(parts[0], parts[1], parts[2]), nil
}

// AtLeast returns true if the version is equal to or newer than the given one.
func (version *SemVer) AtLeast(other *SemVer) bool {
	if version.major != other.major {
		return version.major > other.major
	}
	if version.minor != other.minor {
		return version.minor > other.minor
	}
	return version.patch >= other.patch
}

// Major returns the major component.
func (version *SemVer) Major() uint16 {
	return version.major
}

// Minor returns the minor component.
func (version *SemVer) Minor() uint16 {
	return version.minor
}

// Patch returns the patch component.
func (version *SemVer) Patch() uint16 {
	return version.patch
}

// String implements fmt.Stringer.
func (version *SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", version.major, version.minor, version.patch)
}
