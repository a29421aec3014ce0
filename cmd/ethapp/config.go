// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/caarlos0/env/v11"
	"github.com/ethapp-go/ethapp-api-go/api/common"
	"github.com/ethapp-go/ethapp-api-go/api/ethapp"
	"github.com/ethapp-go/ethapp-api-go/api/trustedname"
	"github.com/ethapp-go/ethapp-api-go/communication/ledgerhid"
	"github.com/ethapp-go/ethapp-api-go/communication/speculos"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"github.com/ethapp-go/ethapp-api-go/util/logging"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// config is read from ETHAPP_* environment variables. Global flags take precedence.
// TrustedNameKey is the hex encoded private key of the trusted name authority.
type config struct {
	SpeculosAddr   string        `env:"SPECULOS_ADDR"`
	TrustedNameKey string        `env:"TRUSTED_NAME_KEY"`
	Keypath        string        `env:"KEYPATH" envDefault:"m/44'/60'/0'/0/0"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DialTimeout    time.Duration `env:"DIAL_TIMEOUT" envDefault:"2s"`
	DialRetries    uint64        `env:"DIAL_RETRIES" envDefault:"5"`
}

func loadConfig(cmd *cli.Command) (*config, error) {
	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ETHAPP_"}); err != nil {
		return nil, errp.WithStack(err)
	}
	if addr := cmd.String("speculos"); addr != "" {
		cfg.SpeculosAddr = addr
	}
	if keypath := cmd.String("keypath"); keypath != "" {
		cfg.Keypath = keypath
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return &cfg, nil
}

// session holds what a command needs to talk to the app.
type session struct {
	cfg     *config
	log     *zap.Logger
	device  *ethapp.Device
	keypath []uint32
}

func (s *session) close() {
	if s.device != nil {
		s.device.Close()
	}
	_ = s.log.Sync()
}

// newSession loads the configuration and sets up logging. The device is only opened if
// withDevice is true.
func newSession(ctx context.Context, cmd *cli.Command, withDevice bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	keypath, err := common.ParseKeypath(cfg.Keypath)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, keypath: keypath}
	if !withDevice {
		return s, nil
	}
	device, err := openDevice(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s.device = device
	return s, nil
}

func openDevice(ctx context.Context, cfg *config, log *zap.Logger) (*ethapp.Device, error) {
	var (
		communication ethapp.Communication
		product       *common.Product
	)
	if cfg.SpeculosAddr != "" {
		comm, err := speculos.Dial(ctx, cfg.SpeculosAddr, speculos.DialOptions{
			Timeout:    cfg.DialTimeout,
			MaxRetries: cfg.DialRetries,
			Notify: func(err error, wait time.Duration) {
				log.Info("emulator not reachable, retrying", zap.Error(err), zap.Duration("wait", wait))
			},
		})
		if err != nil {
			return nil, err
		}
		communication = comm
	} else {
		deviceInfo, err := ledgerhid.Find()
		if err != nil {
			return nil, err
		}
		if p, err := common.ProductFromUSBProductID(deviceInfo.ProductID); err == nil {
			product = &p
		} else {
			log.Info("unknown product", zap.Uint16("productID", deviceInfo.ProductID))
		}
		hidDevice, err := deviceInfo.Open()
		if err != nil {
			return nil, errp.WithStack(err)
		}
		communication = ledgerhid.NewCommunication(ledgerhid.NewHidDevice(hidDevice))
	}
	device := ethapp.NewDevice(nil, product, communication, logging.NewLogger(log))
	if err := device.Init(); err != nil {
		device.Close()
		return nil, err
	}
	return device, nil
}

// attestor returns an attestor holding the configured authority key under keyID.
func (s *session) attestor(keyID trustedname.KeyID) (*trustedname.Attestor, error) {
	if s.cfg.TrustedNameKey == "" {
		return nil, errp.New("ETHAPP_TRUSTED_NAME_KEY is not set")
	}
	keyBytes, err := hex.DecodeString(s.cfg.TrustedNameKey)
	if err != nil || len(keyBytes) != 32 {
		return nil, errp.New("ETHAPP_TRUSTED_NAME_KEY must be 32 hex encoded bytes")
	}
	privateKey, _ := btcec.PrivKeyFromBytes(keyBytes)
	ring := trustedname.NewKeyRing()
	ring.Add(keyID, privateKey)
	return trustedname.NewAttestor(ring), nil
}
