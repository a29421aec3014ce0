// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/ethapp-go/ethapp-api-go/communication/speculos"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Serve answers APDUs sent over the Speculos TCP protocol on the listener until the context is
// done. Connections are served concurrently; APDUs are processed one at a time.
func (simulator *Simulator) Serve(ctx context.Context, listener net.Listener) error {
	group, ctx := errgroup.WithContext(ctx)
	log := simulator.config.Logger

	group.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})
	group.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errp.WithMessage(errp.WithStack(err), "accept failed")
			}
			log.Debug("client connected", zap.Stringer("remote", conn.RemoteAddr()))
			group.Go(func() error {
				simulator.serveConn(ctx, conn)
				return nil
			})
		}
	})
	err := group.Wait()
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (simulator *Simulator) serveConn(ctx context.Context, conn net.Conn) {
	log := simulator.config.Logger.With(zap.Stringer("remote", conn.RemoteAddr()))
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() { _ = conn.Close() }()
	for {
		apdu, err := speculos.ReadRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Info("connection closed", zap.Error(err))
			}
			return
		}
		if err := speculos.WriteResponse(conn, simulator.Exchange(apdu)); err != nil {
			log.Info("could not write response", zap.Error(err))
			return
		}
	}
}
