// SPDX-License-Identifier: Apache-2.0

package trustedname

import (
	"crypto/sha256"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

// Signer signs trusted name messages on behalf of the authority. The key is selected by keyID and
// the signature scheme by algorithmID.
type Signer interface {
	Sign(keyID KeyID, algorithmID AlgorithmID, msg []byte) ([]byte, error)
}

// KeyRing is a Signer holding the authority private keys in memory.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[KeyID]*btcec.PrivateKey
}

// NewKeyRing creates an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: map[KeyID]*btcec.PrivateKey{}}
}

// Add registers the private key used for keyID, replacing any previous one.
func (ring *KeyRing) Add(keyID KeyID, privateKey *btcec.PrivateKey) {
	ring.mu.Lock()
	defer ring.mu.Unlock()
	ring.keys[keyID] = privateKey
}

// PublicKey returns the public key registered for keyID.
func (ring *KeyRing) PublicKey(keyID KeyID) (*btcec.PublicKey, error) {
	ring.mu.RLock()
	defer ring.mu.RUnlock()
	privateKey, ok := ring.keys[keyID]
	if !ok {
		return nil, errp.WithStack(ErrUnknownKey)
	}
	return privateKey.PubKey(), nil
}

// Sign implements Signer.
func (ring *KeyRing) Sign(keyID KeyID, algorithmID AlgorithmID, msg []byte) ([]byte, error) {
	ring.mu.RLock()
	privateKey, ok := ring.keys[keyID]
	ring.mu.RUnlock()
	if !ok {
		return nil, errp.WithMessagef(ErrUnknownKey, "key id %d", keyID)
	}
	switch algorithmID {
	case AlgorithmECDSASHA256:
		digest := sha256.Sum256(msg)
		// RFC6979 nonce, low S.
		return ecdsa.Sign(privateKey, digest[:]).Serialize(), nil
	default:
		return nil, errp.WithMessagef(ErrUnsupportedAlgorithm, "algorithm id %d", algorithmID)
	}
}

// Attestor produces trusted name attestations. It keeps no state between calls.
type Attestor struct {
	signer Signer
}

// NewAttestor creates an Attestor signing with the given signer.
func NewAttestor(signer Signer) *Attestor {
	return &Attestor{signer: signer}
}

// Attest signs the canonical message of the record for the challenge.
func (attestor *Attestor) Attest(challenge uint32, record *Record) ([]byte, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	signature, err := attestor.signer.Sign(record.KeyID, record.AlgorithmID, Message(challenge, record))
	if err != nil {
		return nil, errp.WithMessage(err, "could not sign trusted name")
	}
	return signature, nil
}

// ComputeAttestation is Attest with the record fields passed individually.
func (attestor *Attestor) ComputeAttestation(
	challenge uint32,
	address []byte,
	name string,
	chainID uint64,
	keyID KeyID,
	algorithmID AlgorithmID,
) ([]byte, error) {
	return attestor.Attest(challenge, &Record{
		Address:     address,
		Name:        name,
		ChainID:     chainID,
		KeyID:       keyID,
		AlgorithmID: algorithmID,
	})
}
