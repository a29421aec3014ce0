// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"
)

// masterKeyFromMnemonic derives the BIP-32 master key of a BIP-39 mnemonic without passphrase.
// The checksum of the mnemonic is not verified.
func masterKeyFromMnemonic(mnemonic string) (*hdkeychain.ExtendedKey, error) {
	words := strings.Fields(mnemonic)
	if len(words) == 0 || len(words)%3 != 0 {
		return nil, errp.Newf("invalid mnemonic word count %d", len(words))
	}
	seed := pbkdf2.Key([]byte(strings.Join(words, " ")), []byte("mnemonic"), 2048, 64, sha512.New)
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return masterKey, nil
}

func (simulator *Simulator) derive(keypath []uint32) (*hdkeychain.ExtendedKey, error) {
	key := simulator.masterKey
	for _, element := range keypath {
		var err error
		key, err = key.Derive(element)
		if err != nil {
			return nil, errp.WithStack(err)
		}
	}
	return key, nil
}

func (simulator *Simulator) privateKey(keypath []uint32) (*ecdsa.PrivateKey, error) {
	key, err := simulator.derive(keypath)
	if err != nil {
		return nil, err
	}
	privateKey, err := key.ECPrivKey()
	if err != nil {
		return nil, errp.WithStack(err)
	}
	ecdsaKey, err := crypto.ToECDSA(privateKey.Serialize())
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return ecdsaKey, nil
}

// sign signs the hash with the key at the keypath. The result is [V || R || S] with V=v+parity.
func (simulator *Simulator) sign(keypath []uint32, hash []byte, v byte) ([]byte, error) {
	privateKey, err := simulator.privateKey(keypath)
	if err != nil {
		return nil, err
	}
	signature, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return append([]byte{v + signature[64]}, signature[:64]...), nil
}
