// SPDX-License-Identifier: Apache-2.0

package ethapp

import (
	"encoding/hex"
	"math/big"

	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// ETHSignature is a recoverable secp256k1 signature as returned by the app.
type ETHSignature struct {
	V byte
	R [32]byte
	S [32]byte
}

// Bytes returns the signature in the [R || S || V] format used by go-ethereum.
func (signature *ETHSignature) Bytes() []byte {
	result := make([]byte, 0, 65)
	result = append(result, signature.R[:]...)
	result = append(result, signature.S[:]...)
	return append(result, signature.V)
}

func parseSignature(response []byte) (*ETHSignature, error) {
	if len(response) != 65 {
		return nil, errp.Newf("unexpected signature length: %d", len(response))
	}
	signature := &ETHSignature{V: response[0]}
	copy(signature.R[:], response[1:33])
	copy(signature.S[:], response[33:65])
	return signature, nil
}

// ETHAddress returns the address and the uncompressed public key at the keypath. If display is
// true, the user has to confirm the address on the device.
func (device *Device) ETHAddress(keypath []uint32, display bool) (ethcommon.Address, []byte, error) {
	payload, err := common.EncodeKeypath(keypath)
	if err != nil {
		return ethcommon.Address{}, nil, err
	}
	p1 := byte(p1NoDisplay)
	if display {
		p1 = p1Display
	}
	response, err := device.query(insGetPublicKey, p1, p2NoChainCode, payload)
	if err != nil {
		return ethcommon.Address{}, nil, err
	}
	if len(response) < 1 || len(response) < 1+int(response[0]) {
		return ethcommon.Address{}, nil, errp.New("reply lacks public key entry")
	}
	pubkey := response[1 : 1+int(response[0])]
	response = response[1+int(response[0]):]
	if len(response) < 1 || len(response) < 1+int(response[0]) {
		return ethcommon.Address{}, nil, errp.New("reply lacks address entry")
	}
	addressHex := response[1 : 1+int(response[0])]
	var address ethcommon.Address
	if len(addressHex) != 2*ethcommon.AddressLength {
		return ethcommon.Address{}, nil, errp.Newf("unexpected address length: %d", len(addressHex))
	}
	if _, err := hex.Decode(address[:], addressHex); err != nil {
		return ethcommon.Address{}, nil, errp.WithStack(err)
	}
	return address, pubkey, nil
}

// ETHSignTransaction signs a legacy transaction with EIP-155 replay protection for chainID. The
// device shows the recipient by its trusted name if one was provided and verifies for the
// recipient and chain id. The signed transaction is checked to come from the keypath's address.
func (device *Device) ETHSignTransaction(
	keypath []uint32,
	tx *types.Transaction,
	chainID *big.Int,
) (*types.Transaction, error) {
	if tx.Type() != types.LegacyTxType {
		return nil, errp.Newf("unsupported transaction type %d", tx.Type())
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errp.New("a positive chain id is required")
	}
	payload, err := common.EncodeKeypath(keypath)
	if err != nil {
		return nil, err
	}
	txRLP, err := rlp.EncodeToBytes([]interface{}{
		tx.Nonce(), tx.GasPrice(), tx.Gas(), tx.To(), tx.Value(), tx.Data(),
		chainID, big.NewInt(0), big.NewInt(0),
	})
	if err != nil {
		return nil, errp.WithStack(err)
	}
	response, err := device.queryChunked(insSignTransaction, 0x00, append(payload, txRLP...))
	if err != nil {
		return nil, err
	}
	signature, err := parseSignature(response)
	if err != nil {
		return nil, err
	}
	// The app returns the low byte of chainID*2+35+parity.
	sigBytes := signature.Bytes()
	sigBytes[64] = signature.V - byte(chainID.Uint64()*2+35)
	if sigBytes[64] > 1 {
		return nil, errp.Newf("unexpected signature v %#02x for chain id %s", signature.V, chainID)
	}
	signer := types.NewEIP155Signer(chainID)
	signed, err := tx.WithSignature(signer, sigBytes)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	sender, err := types.Sender(signer, signed)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	address, _, err := device.ETHAddress(keypath, false)
	if err != nil {
		return nil, err
	}
	if sender != address {
		return nil, errp.Newf("signer mismatch: expected %s, got %s", address.Hex(), sender.Hex())
	}
	return signed, nil
}

// SendFund signs a plain transfer of amount wei to the address. It is the transaction the device
// checks a previously provided trusted name against.
func (device *Device) SendFund(
	keypath []uint32,
	nonce uint64,
	gasPrice *big.Int,
	gasLimit uint64,
	to ethcommon.Address,
	amount *big.Int,
	chainID *big.Int,
) (*types.Transaction, error) {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    amount,
	})
	return device.ETHSignTransaction(keypath, tx, chainID)
}

// ETHSignTypedMessageLegacy signs an EIP-712 message given by its domain separator hash and
// message hash, i.e. keccak256("\x19\x01" || domainHash || messageHash). The app cannot show the
// message content in this mode. The signature is deterministic, with V in {27, 28}.
func (device *Device) ETHSignTypedMessageLegacy(
	keypath []uint32,
	domainHash [32]byte,
	messageHash [32]byte,
) (*ETHSignature, error) {
	if !device.atLeast(lowestSupportedEIP712Legacy) {
		return nil, UnsupportedError(lowestSupportedEIP712Legacy.String())
	}
	payload, err := common.EncodeKeypath(keypath)
	if err != nil {
		return nil, err
	}
	payload = append(payload, domainHash[:]...)
	payload = append(payload, messageHash[:]...)
	response, err := device.query(insSignEIP712, 0x00, p2EIP712Hashes, payload)
	if err != nil {
		return nil, err
	}
	return parseSignature(response)
}
