// SPDX-License-Identifier: Apache-2.0

package ethapp_test

import (
	"errors"
	"testing"

	"github.com/ethapp-go/ethapp-api-go/api/ethapp"
	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/stretchr/testify/require"
)

func requireTrustedNamesUnsupported(t *testing.T, env *testEnv, err error) {
	t.Helper()
	if !env.product.SupportsTrustedNames() {
		require.True(t, errors.Is(err, ethapp.ErrProductUnsupported))
		return
	}
	require.Equal(t, ethapp.UnsupportedError("1.10.0"), err)
}

func TestGetChallenge(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		env.onAPDU = func(request *apdu) ([]byte, uint16) {
			require.Equal(t, &apdu{ins: 0x20, data: []byte{}}, request)
			return unhex("deadbeef"), ethapp.StatusOK
		}
		challenge, err := env.device.GetChallenge()
		if !env.supportsTrustedNames() {
			requireTrustedNamesUnsupported(t, env, err)
			return
		}
		require.NoError(t, err)
		require.Equal(t, uint32(0xdeadbeef), challenge)

		// Wrong response.
		env.onAPDU = func(*apdu) ([]byte, uint16) { return unhex("deadbe"), ethapp.StatusOK }
		_, err = env.device.GetChallenge()
		require.Error(t, err)
	})
}

func TestProvideTrustedName(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		called := false
		env.onAPDU = func(request *apdu) ([]byte, uint16) {
			called = true
			require.Equal(t, &apdu{ins: 0x22, data: unhex("0a6c65646765722e657468010103300102")}, request)
			return nil, ethapp.StatusOK
		}
		err := env.device.ProvideTrustedName("ledger.eth", 1, 1, unhex("300102"))
		if !env.supportsTrustedNames() {
			requireTrustedNamesUnsupported(t, env, err)
			require.False(t, called)
			return
		}
		require.NoError(t, err)
		require.True(t, called)

		// Rejected by the app.
		env.onAPDU = func(*apdu) ([]byte, uint16) { return nil, ethapp.StatusInvalidData }
		err = env.device.ProvideTrustedName("ledger.eth", 1, 1, unhex("300102"))
		var statusErr *ethapp.StatusError
		require.True(t, errors.As(err, &statusErr))
		require.Equal(t, uint16(ethapp.StatusInvalidData), statusErr.StatusWord)

		// Invalid UTF-8 is not sent.
		env.onAPDU = func(*apdu) ([]byte, uint16) {
			require.Fail(t, "unexpected query")
			return nil, 0
		}
		require.Error(t, env.device.ProvideTrustedName("ledger\xff.eth", 1, 1, unhex("300102")))

		// Signature too long for the payload.
		require.Error(t, env.device.ProvideTrustedName("ledger.eth", 1, 1, make([]byte, 256)))
	})
}

func TestAttestAndProvideTrustedName(t *testing.T) {
	testConfigurations(t, func(env *testEnv, t *testing.T) {
		if !env.supportsTrustedNames() {
			return
		}
		record := &trustedname.Record{
			Address:     testAddress[:],
			Name:        "ledger.eth",
			ChainID:     1,
			KeyID:       trustedname.KeyIDTest,
			AlgorithmID: trustedname.AlgorithmECDSASHA256,
		}
		var provided *trustedname.Provided
		env.onAPDU = func(request *apdu) ([]byte, uint16) {
			switch request.ins {
			case 0x20:
				return unhex("01020304"), ethapp.StatusOK
			case 0x22:
				var err error
				provided, err = trustedname.DecodeProvidePayload(request.data)
				require.NoError(t, err)
				return nil, ethapp.StatusOK
			}
			require.Fail(t, "unexpected instruction")
			return nil, 0
		}
		require.NoError(t, env.device.AttestAndProvideTrustedName(testAttestor(), record))
		require.NotNil(t, provided)
		require.Equal(t, "ledger.eth", provided.Name)
		require.NoError(t, testVerifier().Verify(0x01020304, record, provided.Signature))
	})
}
