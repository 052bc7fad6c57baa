package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"

	extensioninadapter "extman/internal/modules/extension/adapter/in"
	extensionrpc "extman/internal/modules/extension/adapter/in/rpc"
	extensionoutadapter "extman/internal/modules/extension/adapter/out"
	extensionservice "extman/internal/modules/extension/service"
	extensionusecase "extman/internal/modules/extension/usecase"
	"extman/internal/platform/clock"
	"extman/internal/platform/config"
	"extman/internal/platform/id"
	"extman/internal/platform/logging"
)

type App struct {
	ExtensionCLI extensioninadapter.CLIHandler
	Registry     *extensionrpc.Server
	Logger       hclog.Logger

	index *extensionoutadapter.SQLiteIndex
}

func New(cfg config.Config) (*App, error) {
	logger := logging.New("extman", cfg.LogLevel, os.Stderr)
	clk := clock.SystemClock{}
	ids := id.RandomHex{}

	index, err := extensionoutadapter.NewSQLiteIndex(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new extension index: %w", err)
	}
	extensionSvc := extensionservice.NewExtensionService(
		extensionoutadapter.NewFileConfigStore(cfg.ExtensionsPath, logger.Named("store")),
		index,
		extensionoutadapter.NewOSEnvSource(),
		clk,
		ids,
		logger.Named("extensions"),
	)
	extensionUC := extensionusecase.NewInteractor(extensionSvc)

	return &App{
		ExtensionCLI: extensioninadapter.NewCLIHandler(extensionUC),
		Registry:     extensionrpc.NewServer(extensionUC, logger.Named("registry")),
		Logger:       logger,
		index:        index,
	}, nil
}

func (a *App) Close() error {
	if a.index == nil {
		return nil
	}
	return a.index.Close()
}

// Serve runs the registry gRPC server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, app *App) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	server := grpc.NewServer()
	extensionrpc.RegisterRegistryServer(server, app.Registry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	app.Logger.Info("registry listening", "addr", listener.Addr().String())

	select {
	case <-ctx.Done():
		server.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// ServePlugin hands the registry to a go-plugin host over stdio. It blocks
// until the host disconnects.
func ServePlugin(app *App) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: extensionrpc.HandshakeConfig,
		Plugins:         extensionrpc.PluginMap(app.Registry),
		GRPCServer:      plugin.DefaultGRPCServer,
		Logger:          app.Logger,
	})
}
