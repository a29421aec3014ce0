// SPDX-License-Identifier: Apache-2.0

// Package main is a command line client for the Ethereum app, talking to a USB device or to an
// emulator.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "ethapp",
		Usage: "Ethereum app client: trusted names and EIP-712 signing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "speculos",
				Usage: "Emulator APDU address (host:port). Uses the USB device if empty",
			},
			&cli.StringFlag{
				Name:  "keypath",
				Usage: "Account keypath",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			challengeCommand(),
			attestCommand(),
			provideTrustedNameCommand(),
			sendFundCommand(),
			eip712SignCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
