// Package server initializes and runs the development messaging backend.
// It wires configuration, logging, the in-memory messaging service and the
// gRPC endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/auth"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/config"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/messaging"

	gs "github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	messaging *messaging.Service
}

func NewApp(c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, err
	}

	ms := messaging.NewService(messaging.Config{
		AutoReply:      c.AutoReply,
		AutoReplyDelay: c.AutoReplyDelay,
		DeliveryDelay:  c.DeliveryDelay,
	}, logger)

	return &App{config: c, logger: logger, messaging: ms}, nil
}

// PrintToken writes a token for number to w.
func (app *App) PrintToken(w io.Writer, number string) error {
	tok, err := auth.GenerateToken(number, []byte(app.config.SecretKey), app.config.AccessTokenValidityDuration)
	if err != nil {
		return fmt.Errorf("token for %q: %w", number, err)
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.messaging, app.config.SecretKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) Run(ctx context.Context) {

	if app.config.TokenFor != "" {
		if err := app.PrintToken(os.Stdout, app.config.TokenFor); err != nil {
			app.logger.Error(ctx, err.Error())
		}
		return
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "auto_reply", app.config.AutoReply)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.messaging.Close()
}
