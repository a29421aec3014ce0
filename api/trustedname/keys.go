// SPDX-License-Identifier: Apache-2.0

package trustedname

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

// authorityPubkeys are the uncompressed secp256k1 public keys the device accepts trusted names
// from, by key id.
var authorityPubkeys = map[KeyID]string{
	KeyIDTest: "04b91fbec173e3ba4a714e014ebc827b6f899a9fa7f4ac769cde284317a00f4f650f09f09aa4ff5a31760255fe5dfc811329b3b50be99194fca11619e65f2edfea",
}

// AuthorityPubkey returns the well-known public key for keyID.
func AuthorityPubkey(keyID KeyID) (*btcec.PublicKey, error) {
	pubkeyHex, ok := authorityPubkeys[keyID]
	if !ok {
		return nil, errp.WithMessagef(ErrUnknownKey, "key id %d", keyID)
	}
	pubkeyBytes, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	pubkey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return pubkey, nil
}

// AuthorityPubkeys returns all well-known authority public keys.
func AuthorityPubkeys() (map[KeyID]*btcec.PublicKey, error) {
	pubkeys := make(map[KeyID]*btcec.PublicKey, len(authorityPubkeys))
	for keyID := range authorityPubkeys {
		pubkey, err := AuthorityPubkey(keyID)
		if err != nil {
			return nil, err
		}
		pubkeys[keyID] = pubkey
	}
	return pubkeys, nil
}
