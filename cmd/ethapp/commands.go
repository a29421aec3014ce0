// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"github.com/ethapp-go/ethapp-api-go/util/units"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v3"
)

func trustedNameFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Trusted name, e.g. ledger.eth", Required: true},
		&cli.StringFlag{Name: "address", Usage: "Address the name resolves to", Required: true},
		&cli.UintFlag{Name: "chain-id", Usage: "Chain id the name is valid on", Value: 1},
		&cli.UintFlag{Name: "key-id", Usage: "Authority key id", Value: uint64(trustedname.KeyIDTest)},
		&cli.UintFlag{
			Name:  "algo-id",
			Usage: "Signature algorithm id",
			Value: uint64(trustedname.AlgorithmECDSASHA256),
		},
	}
}

func recordFromFlags(cmd *cli.Command) (*trustedname.Record, error) {
	address, err := parseAddress(cmd.String("address"))
	if err != nil {
		return nil, err
	}
	keyID, algorithmID := cmd.Uint("key-id"), cmd.Uint("algo-id")
	if keyID > 0xff || algorithmID > 0xff {
		return nil, errp.New("key id and algorithm id must fit in a byte")
	}
	return &trustedname.Record{
		Address:     address[:],
		Name:        cmd.String("name"),
		ChainID:     cmd.Uint("chain-id"),
		KeyID:       trustedname.KeyID(keyID),
		AlgorithmID: trustedname.AlgorithmID(algorithmID),
	}, nil
}

func parseAddress(address string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(address) {
		return ethcommon.Address{}, errp.Newf("invalid address %q", address)
	}
	return ethcommon.HexToAddress(address), nil
}

func parseHash(hash string) ([32]byte, error) {
	var result [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(hash, "0x"))
	if err != nil || len(decoded) != len(result) {
		return result, errp.Newf("invalid 32 byte hash %q", hash)
	}
	copy(result[:], decoded)
	return result, nil
}

func challengeCommand() *cli.Command {
	return &cli.Command{
		Name:  "challenge",
		Usage: "Print the current trusted name challenge of the device",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer s.close()
			challenge, err := s.device.GetChallenge()
			if err != nil {
				return err
			}
			fmt.Printf("%#08x\n", challenge)
			return nil
		},
	}
}

func attestCommand() *cli.Command {
	flags := append(trustedNameFlags(), &cli.UintFlag{
		Name:     "challenge",
		Usage:    "Device challenge",
		Required: true,
	})
	return &cli.Command{
		Name:  "attest",
		Usage: "Sign a trusted name for a challenge with the authority key, offline",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer s.close()
			record, err := recordFromFlags(cmd)
			if err != nil {
				return err
			}
			challenge := cmd.Uint("challenge")
			if challenge > 0xffffffff {
				return errp.New("the challenge is 32 bits")
			}
			attestor, err := s.attestor(record.KeyID)
			if err != nil {
				return err
			}
			signature, err := attestor.Attest(uint32(challenge), record)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(signature))
			return nil
		},
	}
}

func provideTrustedNameCommand() *cli.Command {
	flags := append(trustedNameFlags(), &cli.StringFlag{
		Name:  "signature",
		Usage: "Hex encoded attestation. Computed with the authority key if empty",
	})
	return &cli.Command{
		Name:  "provide-trusted-name",
		Usage: "Provide a trusted name to the device for the next transaction",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer s.close()
			record, err := recordFromFlags(cmd)
			if err != nil {
				return err
			}
			if signatureHex := cmd.String("signature"); signatureHex != "" {
				signature, err := hex.DecodeString(signatureHex)
				if err != nil {
					return errp.WithStack(err)
				}
				return s.device.ProvideTrustedName(record.Name, record.KeyID, record.AlgorithmID, signature)
			}
			attestor, err := s.attestor(record.KeyID)
			if err != nil {
				return err
			}
			return s.device.AttestAndProvideTrustedName(attestor, record)
		},
	}
}

func sendFundCommand() *cli.Command {
	return &cli.Command{
		Name:  "send-fund",
		Usage: "Sign a transfer and print the raw signed transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
			&cli.StringFlag{Name: "amount", Usage: "Amount in ether, e.g. 1.22", Required: true},
			&cli.UintFlag{Name: "nonce", Usage: "Account nonce"},
			&cli.StringFlag{Name: "gas-price", Usage: "Gas price in wei", Value: "13000000000"},
			&cli.UintFlag{Name: "gas-limit", Usage: "Gas limit", Value: 21000},
			&cli.UintFlag{Name: "chain-id", Usage: "Chain id", Value: 1},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			to, err := parseAddress(cmd.String("to"))
			if err != nil {
				return err
			}
			amount, err := units.EtherToWei(cmd.String("amount"))
			if err != nil {
				return err
			}
			gasPrice, ok := new(big.Int).SetString(cmd.String("gas-price"), 10)
			if !ok {
				return errp.Newf("invalid gas price %q", cmd.String("gas-price"))
			}
			s, err := newSession(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer s.close()
			tx, err := s.device.SendFund(
				s.keypath,
				cmd.Uint("nonce"),
				gasPrice,
				cmd.Uint("gas-limit"),
				to,
				amount,
				new(big.Int).SetUint64(cmd.Uint("chain-id")),
			)
			if err != nil {
				return err
			}
			raw, err := tx.MarshalBinary()
			if err != nil {
				return errp.WithStack(err)
			}
			fmt.Printf("0x%x\n", raw)
			return nil
		},
	}
}

func eip712SignCommand() *cli.Command {
	return &cli.Command{
		Name:  "eip712-sign",
		Usage: "Sign an EIP-712 message given by its domain and message hashes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "domain-hash", Usage: "Domain separator hash", Required: true},
			&cli.StringFlag{Name: "message-hash", Usage: "Message hash", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			domainHash, err := parseHash(cmd.String("domain-hash"))
			if err != nil {
				return err
			}
			messageHash, err := parseHash(cmd.String("message-hash"))
			if err != nil {
				return err
			}
			s, err := newSession(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer s.close()
			signature, err := s.device.ETHSignTypedMessageLegacy(s.keypath, domainHash, messageHash)
			if err != nil {
				return err
			}
			fmt.Printf("v: %02x\nr: %x\ns: %x\n", signature.V, signature.R, signature.S)
			return nil
		},
	}
}
