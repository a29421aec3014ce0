// SPDX-License-Identifier: Apache-2.0

package ethapp_test

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/api/ethapp"
	"github.com/ethapp-go/ethapp-api-go/api/ethapp/mocks"
	"github.com/ethapp-go/ethapp-api-go/util/semver"
	"github.com/stretchr/testify/require"
)

func unhex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// apdu is a decoded request as seen by the device.
type apdu struct {
	ins, p1, p2 byte
	data        []byte
}

type testEnv struct {
	version       *semver.SemVer
	product       common.Product
	communication *mocks.Communication
	device        *ethapp.Device
	// onAPDU returns the response data and the status word.
	onAPDU func(*apdu) ([]byte, uint16)
}

func (env *testEnv) String() string {
	return fmt.Sprintf("%s-%s", env.product, env.version)
}

func newDevice(
	t *testing.T,
	version *semver.SemVer,
	product common.Product,
	communication *mocks.Communication,
	onAPDU func(*apdu) ([]byte, uint16),
) *ethapp.Device {
	t.Helper()
	communication.MockQuery = func(msg []byte) ([]byte, error) {
		require.GreaterOrEqual(t, len(msg), 5)
		require.Equal(t, byte(0xe0), msg[0])
		require.Len(t, msg, 5+int(msg[4]))
		response, statusWord := onAPDU(&apdu{ins: msg[1], p1: msg[2], p2: msg[3], data: msg[5:]})
		return binary.BigEndian.AppendUint16(append([]byte{}, response...), statusWord), nil
	}
	device := ethapp.NewDevice(version, &product, communication, &mocks.Logger{})
	require.NoError(t, device.Init())
	return device
}

func testConfigurations(t *testing.T, run func(*testEnv, *testing.T)) {
	t.Helper()
	versions := []*semver.SemVer{
		semver.NewSemVer(1, 9, 19),
		semver.NewSemVer(1, 10, 2),
	}
	products := []common.Product{
		common.ProductNanoS,
		common.ProductNanoSPlus,
		common.ProductStax,
	}
	for _, version := range versions {
		for _, product := range products {
			env := &testEnv{
				version:       version,
				product:       product,
				communication: &mocks.Communication{},
			}
			env.device = newDevice(t, version, product, env.communication,
				func(request *apdu) ([]byte, uint16) { return env.onAPDU(request) })
			t.Run(env.String(), func(t *testing.T) {
				run(env, t)
			})
		}
	}
}

// supportsTrustedNames mirrors the product and version gating of the app.
func (env *testEnv) supportsTrustedNames() bool {
	return env.product.SupportsTrustedNames() && env.version.AtLeast(semver.NewSemVer(1, 10, 0))
}

func TestVersion(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		require.Equal(t, env.version, env.device.Version())
		require.Equal(t, env.product, *env.device.Product())
	})
}

func TestClose(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		called := false
		env.communication.MockClose = func() { called = true }
		env.device.Close()
		require.True(t, called)
	})
}

func TestInit(t *testing.T) {
	communication := &mocks.Communication{}
	calls := 0
	device := newDevice(t, nil, common.ProductFlex, communication,
		func(request *apdu) ([]byte, uint16) {
			calls++
			require.Equal(t, byte(0x06), request.ins)
			require.Empty(t, request.data)
			return []byte{ethapp.AppFlagBlindSigning, 1, 11, 0}, ethapp.StatusOK
		})
	require.Equal(t, 1, calls)
	require.Equal(t, semver.NewSemVer(1, 11, 0), device.Version())

	// Already known.
	require.NoError(t, device.Init())
	require.Equal(t, 1, calls)

	// App not open.
	communication = &mocks.Communication{
		MockQuery: func([]byte) ([]byte, error) { return unhex("6e00"), nil },
	}
	device = ethapp.NewDevice(nil, nil, communication, &mocks.Logger{})
	err := device.Init()
	var statusErr *ethapp.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, uint16(ethapp.StatusClassUnsupported), statusErr.StatusWord)
	require.Nil(t, device.Version())
}

func TestAppConfiguration(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		env.onAPDU = func(request *apdu) ([]byte, uint16) {
			require.Equal(t, &apdu{ins: 0x06, data: []byte{}}, request)
			return []byte{0x00, 1, 10, 2}, ethapp.StatusOK
		}
		config, err := env.device.AppConfiguration()
		require.NoError(t, err)
		require.Equal(t, &ethapp.AppConfiguration{Version: semver.NewSemVer(1, 10, 2)}, config)

		// Wrong response.
		env.onAPDU = func(*apdu) ([]byte, uint16) { return []byte{0x00, 1, 10}, ethapp.StatusOK }
		_, err = env.device.AppConfiguration()
		require.Error(t, err)
	})
}

func TestStatusError(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		env.onAPDU = func(*apdu) ([]byte, uint16) { return nil, ethapp.StatusConditionNotSatisfied }
		_, err := env.device.AppConfiguration()
		var statusErr *ethapp.StatusError
		require.True(t, errors.As(err, &statusErr))
		require.True(t, statusErr.IsUserAbort())
		require.Equal(t, "app returned status 0x6985: denied by the user", err.Error())

		env.onAPDU = func(*apdu) ([]byte, uint16) { return nil, 0x6f42 }
		_, err = env.device.AppConfiguration()
		require.True(t, errors.As(err, &statusErr))
		require.False(t, statusErr.IsUserAbort())
		require.Equal(t, "app returned status 0x6f42: unknown error", err.Error())

		// Reply without status word.
		env.communication.MockQuery = func([]byte) ([]byte, error) { return []byte{0x90}, nil }
		_, err = env.device.AppConfiguration()
		require.Error(t, err)

		// Query error.
		expectedErr := errors.New("error")
		env.communication.MockQuery = func([]byte) ([]byte, error) { return nil, expectedErr }
		_, err = env.device.AppConfiguration()
		require.Equal(t, expectedErr, err)
	})
}

func TestUnsupportedError(t *testing.T) {
	require.Equal(t,
		"This feature is supported from app version 1.10.0",
		ethapp.UnsupportedError("1.10.0").Error())
}
