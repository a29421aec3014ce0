// SPDX-License-Identifier: Apache-2.0

// Package main is a playground for devs to interact with a live device.
package main

import (
	"encoding/hex"
	"log"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/api/ethapp"
	"github.com/ethapp-go/ethapp-api-go/api/ethapp/mocks"
	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/communication/ledgerhid"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

func errpanic(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	deviceInfo, err := ledgerhid.Find()
	errpanic(err)
	product, err := common.ProductFromUSBProductID(deviceInfo.ProductID)
	errpanic(err)
	hidDevice, err := deviceInfo.Open()
	errpanic(err)

	comm := ledgerhid.NewCommunication(ledgerhid.NewHidDevice(hidDevice))
	device := ethapp.NewDevice(nil, &product, comm, &mocks.Logger{})
	errpanic(device.Init())
	defer device.Close()
	log.Printf("%s running app %s", product, device.Version())

	keypath, err := common.ParseKeypath("m/44'/60'/0'/0/0")
	errpanic(err)
	address, _, err := device.ETHAddress(keypath, false)
	errpanic(err)
	log.Printf("account: %s", address.Hex())

	// Only accepted by app builds that skip the trusted name signature check, as the authority key
	// of real builds is not available here.
	authorityKey, _ := btcec.PrivKeyFromBytes(
		[]byte("playground-authority-key-32bytes"),
	)
	ring := trustedname.NewKeyRing()
	ring.Add(trustedname.KeyIDTest, authorityKey)
	recipient := ethcommon.HexToAddress("0x0011223344556677889900112233445566778899")
	errpanic(device.AttestAndProvideTrustedName(trustedname.NewAttestor(ring), &trustedname.Record{
		Address:     recipient[:],
		Name:        "ledger.eth",
		ChainID:     1,
		KeyID:       trustedname.KeyIDTest,
		AlgorithmID: trustedname.AlgorithmECDSASHA256,
	}))

	tx, err := device.SendFund(keypath, 21, big.NewInt(13000000000), 21000, recipient,
		big.NewInt(1220000000000000000), big.NewInt(1))
	errpanic(err)
	raw, err := tx.MarshalBinary()
	errpanic(err)
	log.Printf("signed: %s", hex.EncodeToString(raw))
}
