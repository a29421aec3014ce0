// SPDX-License-Identifier: Apache-2.0

package errp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilPassthrough(t *testing.T) {
	require.NoError(t, WithStack(nil))
	require.NoError(t, WithMessage(nil, "message"))
	require.NoError(t, Wrap(nil, "message"))
}

func TestCause(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := WithMessage(WithStack(sentinel), "failed to query")
	require.Equal(t, sentinel, Cause(err))
	require.True(t, errors.Is(err, sentinel))
	require.Equal(t, "failed to query: sentinel", err.Error())
}

func TestStack(t *testing.T) {
	err := Newf("value %d", 3)
	require.Equal(t, "value 3", err.Error())
	require.Contains(t, fmt.Sprintf("%+v", err), "TestStack")
}
