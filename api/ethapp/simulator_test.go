// SPDX-License-Identifier: Apache-2.0

package ethapp_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/api/ethapp"
	"github.com/ethapp-go/ethapp-api-go/api/ethapp/mocks"
	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/simulator"
	"github.com/ethapp-go/ethapp-api-go/util/units"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	testAddress = ethcommon.HexToAddress("0x0011223344556677889900112233445566778899")
	// Address of testKeypath with the default mnemonic.
	testAccount = ethcommon.HexToAddress("0xdad77910dbdfde764fc21fcd4e74d71bbaca6d8d")
	// Arbitrary, no special meaning.
	testAuthorityKey, _ = btcec.PrivKeyFromBytes(
		unhex("15608dfed8e876bed1cf2599574ce853f7a2a017d19ba0aabd4bcba033a70880"),
	)
)

func testAttestor() *trustedname.Attestor {
	ring := trustedname.NewKeyRing()
	ring.Add(trustedname.KeyIDTest, testAuthorityKey)
	return trustedname.NewAttestor(ring)
}

func testVerifier() *trustedname.Verifier {
	return trustedname.NewVerifier(map[trustedname.KeyID]*btcec.PublicKey{
		trustedname.KeyIDTest: testAuthorityKey.PubKey(),
	})
}

// newSimulatedDevice returns a device connected to a simulator, with the version read from the
// simulated app.
func newSimulatedDevice(t *testing.T, config simulator.Config) (*ethapp.Device, *simulator.Simulator) {
	t.Helper()
	if config.Verifier == nil {
		config.Verifier = testVerifier()
	}
	sim, err := simulator.New(config)
	require.NoError(t, err)
	product := config.Product
	if product == "" {
		product = common.ProductStax
	}
	device := ethapp.NewDevice(nil, &product, sim, &mocks.Logger{})
	require.NoError(t, device.Init())
	return device, sim
}

func sendFund(t *testing.T, device *ethapp.Device, to ethcommon.Address, chainID int64) *types.Transaction {
	t.Helper()
	amount, err := units.EtherToWei("1.22")
	require.NoError(t, err)
	tx, err := device.SendFund(testKeypath, 21, big.NewInt(13000000000), 21000, to, amount, big.NewInt(chainID))
	require.NoError(t, err)
	return tx
}

func TestSimulatorInit(t *testing.T) {
	device, _ := newSimulatedDevice(t, simulator.Config{})
	require.Equal(t, "1.10.2", device.Version().String())
}

func TestSimulatorETHAddress(t *testing.T) {
	device, _ := newSimulatedDevice(t, simulator.Config{})
	address, pubkey, err := device.ETHAddress(testKeypath, false)
	require.NoError(t, err)
	require.Equal(t, testAccount, address)
	require.Len(t, pubkey, 65)
}

func TestSimulatorSendFundTrustedName(t *testing.T) {
	const name = "ledger.eth"
	reversed := make([]byte, len(testAddress))
	for i, b := range testAddress {
		reversed[len(reversed)-1-i] = b
	}

	tests := []struct {
		description string
		// attest derives the attested challenge from the device challenge.
		attest       func(challenge uint32) uint32
		to           ethcommon.Address
		chainID      int64
		expectedName bool
	}{
		{
			description:  "trusted name",
			attest:       func(challenge uint32) uint32 { return challenge },
			to:           testAddress,
			chainID:      1,
			expectedName: true,
		},
		{
			description: "wrong challenge",
			attest:      func(challenge uint32) uint32 { return ^challenge },
			to:          testAddress,
			chainID:     1,
		},
		{
			description: "wrong address",
			attest:      func(challenge uint32) uint32 { return challenge },
			to:          ethcommon.BytesToAddress(reversed),
			chainID:     1,
		},
		{
			description: "wrong chain id",
			attest:      func(challenge uint32) uint32 { return challenge },
			to:          testAddress,
			chainID:     5,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			device, sim := newSimulatedDevice(t, simulator.Config{})
			challenge, err := device.GetChallenge()
			require.NoError(t, err)
			signature, err := testAttestor().ComputeAttestation(
				test.attest(challenge), testAddress[:], name, 1,
				trustedname.KeyIDTest, trustedname.AlgorithmECDSASHA256)
			require.NoError(t, err)
			require.NoError(t, device.ProvideTrustedName(
				name, trustedname.KeyIDTest, trustedname.AlgorithmECDSASHA256, signature))

			tx := sendFund(t, device, test.to, test.chainID)

			review := sim.LastReview()
			require.NotNil(t, review)
			require.Equal(t, test.expectedName, review.TrustedName)
			if test.expectedName {
				require.Equal(t, name, review.Recipient)
			} else {
				require.Equal(t, test.to.Hex(), review.Recipient)
			}
			require.Equal(t, "1.22", units.FormatEther(review.Amount))
			require.Equal(t, big.NewInt(test.chainID), review.ChainID)

			require.Equal(t, &test.to, tx.To())
			sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(test.chainID)), tx)
			require.NoError(t, err)
			require.Equal(t, testAccount, sender)

			// The challenge was consumed.
			nextChallenge, err := device.GetChallenge()
			require.NoError(t, err)
			require.Equal(t, sim.Challenge(), nextChallenge)
		})
	}
}

func TestSimulatorTrustedNameSingleUse(t *testing.T) {
	device, sim := newSimulatedDevice(t, simulator.Config{})
	record := &trustedname.Record{
		Address:     testAddress[:],
		Name:        "ledger.eth",
		ChainID:     1,
		KeyID:       trustedname.KeyIDTest,
		AlgorithmID: trustedname.AlgorithmECDSASHA256,
	}
	require.NoError(t, device.AttestAndProvideTrustedName(testAttestor(), record))
	sendFund(t, device, testAddress, 1)
	require.True(t, sim.LastReview().TrustedName)

	sendFund(t, device, testAddress, 1)
	require.False(t, sim.LastReview().TrustedName)
}

func TestSimulatorUserAbort(t *testing.T) {
	device, sim := newSimulatedDevice(t, simulator.Config{
		Approve: func(*simulator.Review) bool { return false },
	})
	amount, err := units.EtherToWei("1.22")
	require.NoError(t, err)
	_, err = device.SendFund(testKeypath, 21, big.NewInt(13000000000), 21000, testAddress, amount, big.NewInt(1))
	var statusErr *ethapp.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.True(t, statusErr.IsUserAbort())
	require.False(t, sim.LastReview().Approved)
}

func TestSimulatorSignTransactionChunked(t *testing.T) {
	sim, err := simulator.New(simulator.Config{Verifier: testVerifier()})
	require.NoError(t, err)
	var p1s []byte
	communication := &mocks.Communication{
		MockQuery: func(msg []byte) ([]byte, error) {
			if msg[1] == 0x04 {
				p1s = append(p1s, msg[2])
			}
			return sim.Exchange(msg), nil
		},
	}
	device := ethapp.NewDevice(nil, nil, communication, &mocks.Logger{})
	require.NoError(t, device.Init())

	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    3,
		GasPrice: big.NewInt(1000000000),
		Gas:      100000,
		To:       &testAddress,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := device.ETHSignTransaction(testKeypath, tx, big.NewInt(137))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x80, 0x80}, p1s)
	require.Equal(t, data, signed.Data())
	require.Equal(t, big.NewInt(137), signed.ChainId())
}

func TestSimulatorEIP712Legacy(t *testing.T) {
	device, _ := newSimulatedDevice(t, simulator.Config{})
	var domainHash, messageHash [32]byte
	copy(domainHash[:], unhex("6137beb405d9ff777172aa879e33edb34a1460e701802746c5ef96e741710e59"))
	copy(messageHash[:], unhex("eb4221181ff3f1a83ea7313993ca9218496e424604ba9492bb4052c03d5c3df8"))

	for i := 0; i < 2; i++ {
		signature, err := device.ETHSignTypedMessageLegacy(testKeypath, domainHash, messageHash)
		require.NoError(t, err)
		require.Equal(t, byte(0x1c), signature.V)
		require.Equal(t,
			"ea66f747173762715751c889fea8722acac3fc35db2c226d37a2e58815398f64",
			hex.EncodeToString(signature.R[:]))
		require.Equal(t,
			"52d8ba9153de9255da220ffd36762c0b027701a3b5110f0a765f94b16a9dfb55",
			hex.EncodeToString(signature.S[:]))
	}
}

func TestSimulatorNanoS(t *testing.T) {
	device, sim := newSimulatedDevice(t, simulator.Config{Product: common.ProductNanoS})
	_, err := device.GetChallenge()
	require.ErrorIs(t, err, ethapp.ErrProductUnsupported)

	sendFund(t, device, testAddress, 1)
	require.Equal(t, testAddress.Hex(), sim.LastReview().Recipient)
}
