package server

import (
	"context"

	"github.com/iov-one/escrowd/errors"
	"github.com/tendermint/tendermint/abci/server"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

// DefaultBind is the address tendermint dials to reach the application.
const DefaultBind = "tcp://localhost:26658"

// Start serves the application over the ABCI socket protocol on bind
// until ctx is cancelled.
func Start(ctx context.Context, app abci.Application, bind string, logger log.Logger) error {
	logger.Info("Starting ABCI app", "bind", bind)

	svr, err := server.NewServer(bind, "socket", app)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "cannot create listener: %s", err)
	}
	svr.SetLogger(logger.With("module", "abci-server"))
	if err := svr.Start(); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "cannot start server: %s", err)
	}

	<-ctx.Done()
	logger.Info("Stopping ABCI app")
	return svr.Stop()
}
