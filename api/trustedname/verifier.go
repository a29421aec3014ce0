// SPDX-License-Identifier: Apache-2.0

package trustedname

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

var (
	// ErrUnknownKey is returned for a key id without an authority key.
	ErrUnknownKey = errors.New("unknown trusted name key")
	// ErrUnsupportedAlgorithm is returned for an unknown algorithm id.
	ErrUnsupportedAlgorithm = errors.New("unsupported trusted name algorithm")
	// ErrInvalidSignature is returned when the attestation does not match the record.
	ErrInvalidSignature = errors.New("invalid trusted name signature")
)

// Verifier checks attestations the way the device does.
type Verifier struct {
	pubkeys          map[KeyID]*btcec.PublicKey
	bypassSignatures bool
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithBypassSignatures makes the verifier accept any signature from a known key and algorithm,
// like development builds of the app do.
func WithBypassSignatures() VerifierOption {
	return func(verifier *Verifier) {
		verifier.bypassSignatures = true
	}
}

// NewVerifier creates a Verifier trusting the given authority keys.
func NewVerifier(pubkeys map[KeyID]*btcec.PublicKey, options ...VerifierOption) *Verifier {
	verifier := &Verifier{pubkeys: make(map[KeyID]*btcec.PublicKey, len(pubkeys))}
	for keyID, pubkey := range pubkeys {
		verifier.pubkeys[keyID] = pubkey
	}
	for _, option := range options {
		option(verifier)
	}
	return verifier
}

// NewDefaultVerifier creates a Verifier trusting the well-known authority keys.
func NewDefaultVerifier(options ...VerifierOption) (*Verifier, error) {
	pubkeys, err := AuthorityPubkeys()
	if err != nil {
		return nil, err
	}
	return NewVerifier(pubkeys, options...), nil
}

// Verify checks that signature is a valid attestation of the record for the challenge.
func (verifier *Verifier) Verify(challenge uint32, record *Record, signature []byte) error {
	pubkey, ok := verifier.pubkeys[record.KeyID]
	if !ok {
		return errp.WithMessagef(ErrUnknownKey, "key id %d", record.KeyID)
	}
	if record.AlgorithmID != AlgorithmECDSASHA256 {
		return errp.WithMessagef(ErrUnsupportedAlgorithm, "algorithm id %d", record.AlgorithmID)
	}
	if verifier.bypassSignatures {
		return nil
	}
	parsed, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return errp.WithMessage(ErrInvalidSignature, err.Error())
	}
	digest := sha256.Sum256(Message(challenge, record))
	if !parsed.Verify(digest[:], pubkey) {
		return errp.WithStack(ErrInvalidSignature)
	}
	return nil
}
