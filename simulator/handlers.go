// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"math/big"

	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/util/units"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"go.uber.org/zap"
)

// signingPayload is the RLP list the host sends to sign a legacy transaction. The last three
// fields are only present with EIP-155 replay protection.
type signingPayload struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *ethcommon.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int `rlp:"optional"`
	R        uint64   `rlp:"optional"`
	S        uint64   `rlp:"optional"`
}

func (simulator *Simulator) handleGetPublicKey(p1, p2 byte, data []byte) ([]byte, uint16) {
	if p1 > 0x01 || p2 > 0x01 {
		return nil, swIncorrectP1P2
	}
	keypath, rest, err := common.DecodeKeypath(data)
	if err != nil || len(rest) != 0 {
		return nil, swInvalidData
	}
	key, err := simulator.derive(keypath)
	if err != nil {
		simulator.config.Logger.Error("key derivation failed", zap.Error(err))
		return nil, swInvalidData
	}
	publicKey, err := key.ECPubKey()
	if err != nil {
		return nil, swInvalidData
	}
	pubkey := publicKey.SerializeUncompressed()
	address := ethcommon.BytesToAddress(crypto.Keccak256(pubkey[1:])[12:])
	addressHex := []byte(hex.EncodeToString(address[:]))

	response := append([]byte{byte(len(pubkey))}, pubkey...)
	response = append(response, byte(len(addressHex)))
	response = append(response, addressHex...)
	if p2 == 0x01 {
		response = append(response, key.ChainCode()...)
	}
	return response, swOK
}

func (simulator *Simulator) handleGetAppConfiguration(p1, p2 byte, data []byte) ([]byte, uint16) {
	if len(data) != 0 {
		return nil, swWrongDataLength
	}
	version := simulator.config.Version
	return []byte{
		simulator.config.Flags,
		byte(version.Major()),
		byte(version.Minor()),
		byte(version.Patch()),
	}, swOK
}

func (simulator *Simulator) handleGetChallenge(p1, p2 byte, data []byte) ([]byte, uint16) {
	if !simulator.config.Product.SupportsTrustedNames() {
		return nil, swInstructionUnsupported
	}
	return binary.BigEndian.AppendUint32(nil, simulator.challenge), swOK
}

func (simulator *Simulator) handleProvideTrustedName(p1, p2 byte, data []byte) ([]byte, uint16) {
	if !simulator.config.Product.SupportsTrustedNames() {
		return nil, swInstructionUnsupported
	}
	simulator.pendingName = nil
	provided, err := trustedname.DecodeProvidePayload(data)
	if err != nil {
		simulator.config.Logger.Debug("malformed trusted name", zap.Error(err))
		return nil, swInvalidData
	}
	simulator.pendingName = provided
	return nil, swOK
}

// lookupTrustedName returns the pending trusted name if it is attested for the address and chain
// id under the current challenge. The pending name is consumed and the challenge rolled in any
// case.
func (simulator *Simulator) lookupTrustedName(address ethcommon.Address, chainID uint64) (string, bool) {
	log := simulator.config.Logger
	provided := simulator.pendingName
	challenge := simulator.challenge
	simulator.pendingName = nil
	if err := simulator.rollChallenge(); err != nil {
		log.Error("challenge not rolled", zap.Error(err))
	}
	if provided == nil {
		return "", false
	}
	err := simulator.config.Verifier.Verify(challenge, provided.Record(address[:], chainID), provided.Signature)
	if err != nil {
		log.Info("trusted name rejected",
			zap.String("name", provided.Name),
			zap.Stringer("address", address),
			zap.Uint64("chainID", chainID),
			zap.Error(err))
		return "", false
	}
	return provided.Name, true
}

func (simulator *Simulator) handleSignTransaction(p1, p2 byte, data []byte) ([]byte, uint16) {
	switch p1 {
	case 0x00:
		simulator.txBuffer = append([]byte{}, data...)
	case 0x80:
		if simulator.txBuffer == nil {
			return nil, swInvalidData
		}
		simulator.txBuffer = append(simulator.txBuffer, data...)
	default:
		return nil, swIncorrectP1P2
	}
	keypath, txRLP, err := common.DecodeKeypath(simulator.txBuffer)
	if err != nil {
		simulator.txBuffer = nil
		return nil, swInvalidData
	}
	_, _, rest, err := rlp.Split(txRLP)
	switch {
	case errors.Is(err, rlp.ErrValueTooLarge) || errors.Is(err, io.ErrUnexpectedEOF) || len(txRLP) == 0:
		// Wait for the next chunk.
		return nil, swOK
	case err != nil || len(rest) != 0:
		simulator.txBuffer = nil
		return nil, swInvalidData
	}
	simulator.txBuffer = nil

	var payload signingPayload
	if err := rlp.DecodeBytes(txRLP, &payload); err != nil {
		simulator.config.Logger.Debug("malformed transaction", zap.Error(err))
		return nil, swInvalidData
	}
	chainID := payload.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	review := &Review{
		Keypath: keypath,
		Amount:  payload.Value,
		ChainID: chainID,
	}
	if payload.To != nil {
		review.Recipient = payload.To.Hex()
		if simulator.config.Product.SupportsTrustedNames() {
			if name, ok := simulator.lookupTrustedName(*payload.To, chainID.Uint64()); ok {
				review.Recipient = name
				review.TrustedName = true
			}
		}
	}
	review.Approved = simulator.config.Approve == nil || simulator.config.Approve(review)
	simulator.reviews = append(simulator.reviews, review)
	simulator.config.Logger.Info("transaction reviewed",
		zap.String("recipient", review.Recipient),
		zap.Bool("trustedName", review.TrustedName),
		zap.String("amount", units.FormatEther(payload.Value)),
		zap.Stringer("chainID", chainID),
		zap.Bool("approved", review.Approved))
	if !review.Approved {
		return nil, swConditionNotSatisfied
	}

	v := byte(27)
	if chainID.Sign() > 0 {
		v = byte(chainID.Uint64()*2 + 35)
	}
	signature, err := simulator.sign(keypath, crypto.Keccak256(txRLP), v)
	if err != nil {
		simulator.config.Logger.Error("signing failed", zap.Error(err))
		return nil, swInvalidData
	}
	return signature, swOK
}

func (simulator *Simulator) handleSignEIP712(p1, p2 byte, data []byte) ([]byte, uint16) {
	if p1 != 0x00 || p2 != 0x00 {
		return nil, swIncorrectP1P2
	}
	keypath, hashes, err := common.DecodeKeypath(data)
	if err != nil || len(hashes) != 64 {
		return nil, swInvalidData
	}
	digest := crypto.Keccak256([]byte{0x19, 0x01}, hashes[:32], hashes[32:])
	signature, err := simulator.sign(keypath, digest, 27)
	if err != nil {
		simulator.config.Logger.Error("signing failed", zap.Error(err))
		return nil, swInvalidData
	}
	return signature, swOK
}
