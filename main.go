// Command vigil runs the web page monitoring daemon: the HTTP API, the
// per-domain check scheduler and the snapshot store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/vigil/internal/app"
	"github.com/raysh454/vigil/internal/cli"
	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/logging"
)

func main() {
	logger := logging.NewStdoutLogger("vigil")

	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		logger.Error("invalid arguments", interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(args.ConfigPath)
	if err != nil {
		logger.Error("failed to load configuration", interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	if args.ListenAddr != "" {
		cfg.Server.ListenAddr = args.ListenAddr
	}
	if args.DataDir != "" {
		cfg.Storage.DataDir = args.DataDir
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	if err := application.Start(); err != nil {
		logger.Error("failed to start application", interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := application.Shutdown(context.Background()); err != nil {
			logger.Warn("shutdown returned error", interfaces.Field{Key: "error", Value: err.Error()})
		}
	}()

	logger.Info("listening", interfaces.Field{Key: "addr", Value: cfg.Server.ListenAddr})
	if err := application.HTTPServer().ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
}
