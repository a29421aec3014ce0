// SPDX-License-Identifier: Apache-2.0

// Package simulator implements a software version of the Ethereum app, speaking the same APDUs
// as a real device. It is used to test the host API end to end and can be served over TCP like
// the Speculos emulator.
package simulator

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"github.com/ethapp-go/ethapp-api-go/util/semver"
	"go.uber.org/zap"
)

// DefaultMnemonic is the seed the Speculos emulator starts with.
const DefaultMnemonic = "glory promote mansion idle axis finger extra february uncover one trip " +
	"resource lawn turtle enact monster seven myth punch hobby comfort wild raise skin"

const (
	swOK                     = 0x9000
	swWrongDataLength        = 0x6700
	swConditionNotSatisfied  = 0x6985
	swInvalidData            = 0x6a80
	swIncorrectP1P2          = 0x6b00
	swInstructionUnsupported = 0x6d00
	swClassUnsupported       = 0x6e00
)

// Review is what the device showed the user for a transaction.
type Review struct {
	Keypath []uint32
	// Recipient is the trusted name if TrustedName is true, the checksummed address otherwise.
	Recipient   string
	TrustedName bool
	Amount      *big.Int
	ChainID     *big.Int
	Approved    bool
}

// Config configures a Simulator. The zero value is a Stax running app version 1.10.2 with the
// default seed and the well-known trusted name keys.
type Config struct {
	Mnemonic string
	Version  *semver.SemVer
	Product  common.Product
	// Flags is returned in the app configuration.
	Flags byte
	// Verifier checks trusted names.
	Verifier *trustedname.Verifier
	// Rand is the source of challenges.
	Rand io.Reader
	// Approve decides whether the user accepts a transaction. Nil accepts everything.
	Approve func(*Review) bool
	Logger  *zap.Logger
}

// Simulator is an in-memory device running the Ethereum app.
type Simulator struct {
	mu sync.Mutex

	config    Config
	masterKey *hdkeychain.ExtendedKey

	challenge uint32
	// pendingName is the trusted name provided for the next transaction.
	pendingName *trustedname.Provided
	// txBuffer collects a transaction sent over several APDUs.
	txBuffer []byte
	reviews  []*Review
}

// New creates a Simulator.
func New(config Config) (*Simulator, error) {
	if config.Mnemonic == "" {
		config.Mnemonic = DefaultMnemonic
	}
	if config.Version == nil {
		config.Version = semver.NewSemVer(1, 10, 2)
	}
	if config.Product == "" {
		config.Product = common.ProductStax
	}
	if config.Verifier == nil {
		verifier, err := trustedname.NewDefaultVerifier()
		if err != nil {
			return nil, err
		}
		config.Verifier = verifier
	}
	if config.Rand == nil {
		config.Rand = rand.Reader
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	masterKey, err := masterKeyFromMnemonic(config.Mnemonic)
	if err != nil {
		return nil, err
	}
	simulator := &Simulator{
		config:    config,
		masterKey: masterKey,
	}
	if err := simulator.rollChallenge(); err != nil {
		return nil, err
	}
	return simulator, nil
}

func (simulator *Simulator) rollChallenge() error {
	if err := binary.Read(simulator.config.Rand, binary.BigEndian, &simulator.challenge); err != nil {
		return errp.WithMessage(errp.WithStack(err), "could not roll challenge")
	}
	return nil
}

// Challenge returns the current challenge.
func (simulator *Simulator) Challenge() uint32 {
	simulator.mu.Lock()
	defer simulator.mu.Unlock()
	return simulator.challenge
}

// Reviews returns all transactions shown to the user so far.
func (simulator *Simulator) Reviews() []*Review {
	simulator.mu.Lock()
	defer simulator.mu.Unlock()
	return append([]*Review{}, simulator.reviews...)
}

// LastReview returns the last transaction shown to the user, or nil.
func (simulator *Simulator) LastReview() *Review {
	simulator.mu.Lock()
	defer simulator.mu.Unlock()
	if len(simulator.reviews) == 0 {
		return nil
	}
	return simulator.reviews[len(simulator.reviews)-1]
}

// Query implements ethapp.Communication.
func (simulator *Simulator) Query(apdu []byte) ([]byte, error) {
	return simulator.Exchange(apdu), nil
}

// Close implements ethapp.Communication.
func (simulator *Simulator) Close() {}

func withStatus(data []byte, statusWord uint16) []byte {
	return binary.BigEndian.AppendUint16(append([]byte{}, data...), statusWord)
}

// Exchange processes one APDU and returns the response data followed by the status word.
func (simulator *Simulator) Exchange(apdu []byte) []byte {
	simulator.mu.Lock()
	defer simulator.mu.Unlock()

	if len(apdu) < 5 || len(apdu) != 5+int(apdu[4]) {
		return withStatus(nil, swWrongDataLength)
	}
	if apdu[0] != 0xe0 {
		return withStatus(nil, swClassUnsupported)
	}
	ins, p1, p2, data := apdu[1], apdu[2], apdu[3], apdu[5:]
	log := simulator.config.Logger.With(zap.Uint8("ins", ins))

	var handler func(p1, p2 byte, data []byte) ([]byte, uint16)
	switch ins {
	case 0x02:
		handler = simulator.handleGetPublicKey
	case 0x04:
		handler = simulator.handleSignTransaction
	case 0x06:
		handler = simulator.handleGetAppConfiguration
	case 0x0c:
		handler = simulator.handleSignEIP712
	case 0x20:
		handler = simulator.handleGetChallenge
	case 0x22:
		handler = simulator.handleProvideTrustedName
	default:
		log.Debug("unsupported instruction")
		return withStatus(nil, swInstructionUnsupported)
	}
	response, statusWord := handler(p1, p2, data)
	if statusWord != swOK {
		log.Debug("request failed", zap.Uint16("status", statusWord))
	}
	return withStatus(response, statusWord)
}
