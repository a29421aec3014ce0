// SPDX-License-Identifier: Apache-2.0

// Package main serves the simulated Ethereum app over the Speculos APDU protocol, so that clients
// written for the emulator can be run without it.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/simulator"
	"github.com/ethapp-go/ethapp-api-go/util/logging"
	"github.com/ethapp-go/ethapp-api-go/util/semver"
	"go.uber.org/zap"
)

// config is read from ETHAPP_SIMULATOR_* environment variables. BypassSignatures accepts any
// trusted name signature, like development builds of the app.
type config struct {
	Addr             string `env:"ADDR" envDefault:"127.0.0.1:9999"`
	Mnemonic         string `env:"MNEMONIC"`
	Model            string `env:"MODEL" envDefault:"stax"`
	Version          string `env:"VERSION" envDefault:"1.10.2"`
	BypassSignatures bool   `env:"BYPASS_SIGNATURES"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
}

func run(ctx context.Context, cfg *config, log *zap.Logger) error {
	product, err := common.ProductFromModelName(cfg.Model)
	if err != nil {
		return err
	}
	version, err := semver.NewSemVerFromString(cfg.Version)
	if err != nil {
		return err
	}
	var options []trustedname.VerifierOption
	if cfg.BypassSignatures {
		options = append(options, trustedname.WithBypassSignatures())
	}
	verifier, err := trustedname.NewDefaultVerifier(options...)
	if err != nil {
		return err
	}
	sim, err := simulator.New(simulator.Config{
		Mnemonic: cfg.Mnemonic,
		Version:  version,
		Product:  product,
		Verifier: verifier,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	log.Info("serving APDUs",
		zap.Stringer("addr", listener.Addr()),
		zap.String("model", string(product)),
		zap.Stringer("version", version))
	return sim.Serve(ctx, listener)
}

func main() {
	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ETHAPP_SIMULATOR_"}); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, &cfg, logger); err != nil {
		logger.Fatal("simulator stopped", zap.Error(err))
	}
}
