package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpshade/permahub/internal/config"
	"github.com/dpshade/permahub/internal/engine"
	"github.com/dpshade/permahub/internal/hub"
	"github.com/dpshade/permahub/internal/pgstore"
	"github.com/dpshade/permahub/internal/store"
	"github.com/dpshade/permahub/internal/transport"
	"github.com/dpshade/permahub/internal/wallet"
)

const (
	shutdownTimeout  = 15 * time.Second
	readinessTimeout = 2 * time.Second
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a hub",
		Long: `Run a hub over HTTP until interrupted.

The hub key is read from hub.key_file and created when missing. Query
limits are reloaded when the config file changes.

Endpoints:
  POST /v1/messages  transport messages (Event, FetchEvents, Info)
  GET  /healthz      liveness
  GET  /readyz       store reachability
  GET  /metrics      Prometheus metrics

Examples:
  permahub serve
  permahub serve --config /etc/permahub.yaml --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default server.addr)")

	return cmd
}

// server is a hub wired to its store, key and HTTP handler.
type server struct {
	hub     *hub.Hub
	wallet  *wallet.Wallet
	handler http.Handler
	close   func() error
}

// openStore opens the configured persistence backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (hub.Store, func() error, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := pgstore.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "sqlite", "":
		s, err := store.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newServer builds a hub from cfg. The hub is not running yet; the caller
// owns Run and close.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server, error) {
	w, created, err := wallet.LoadOrGenerate(cfg.Hub.KeyFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, CodeKey+": failed to load hub key", err)
	}
	if created {
		logger.Info("generated hub key", "path", cfg.Hub.KeyFile, "id", w.ID())
	}

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, WrapExitError(ExitFailure, CodeStore+": failed to open store", err)
	}

	sender := transport.NewHTTPClient("", cfg.Fanout.Timeout)
	for id, url := range cfg.Hub.Peers {
		sender.AddPeer(id, url)
	}

	h, err := hub.New(ctx, st, hub.Config{
		ID:     w.ID(),
		Owner:  cfg.Hub.Owner,
		Limits: cfg.Query.Limits(),
		Dispatch: engine.DispatchConfig{
			Workers:    cfg.Fanout.Workers,
			QueueDepth: cfg.Fanout.QueueDepth,
			Timeout:    cfg.Fanout.Timeout,
		},
	}, hub.TransportDeliverer{Sender: sender, Signer: w}, hub.WithLogger(logger))
	if err != nil {
		closeStore()
		return nil, WrapExitError(ExitFailure, CodeServe+": failed to start hub", err)
	}

	serverOpts := []transport.ServerOption{
		transport.WithServerLogger(logger),
		transport.WithReadiness(func() error {
			rctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer cancel()
			return h.Ready(rctx)
		}),
	}
	if cfg.Server.VerifySignatures {
		serverOpts = append(serverOpts, transport.WithVerifier(wallet.Verify))
	}

	return &server{
		hub:     h,
		wallet:  w,
		handler: transport.NewHTTPServer(h, serverOpts...).Handler(),
		close:   closeStore,
	}, nil
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	loader, err := opts.loadConfig(opts.newLogger(config.LogConfig{}, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	cfg := loader.Config()
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	logger := opts.newLogger(cfg.Log, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.close()

	loader.OnChange(func(next *config.Config) {
		srv.hub.SetLimits(next.Query.Limits())
		logger.Info("query limits reloaded", "default", next.Query.DefaultLimit, "hard_cap", next.Query.HardCap)
	})
	if stopWatch, err := loader.Watch(); err != nil {
		logger.Warn("config watcher unavailable (hot-reload disabled)", "error", err)
	} else {
		defer stopWatch()
	}

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	hubDone := make(chan error, 1)
	go func() { hubDone <- srv.hub.Run(hubCtx) }()

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("hub listening", "addr", addr, "id", srv.wallet.ID(), "store", cfg.Store.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case listenErr = <-serveErr:
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	srv.hub.Stop()
	if err := <-hubDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("hub stopped with error", "error", err)
	}

	if listenErr != nil {
		return WrapExitError(ExitFailure, CodeServe+": listen failed", listenErr)
	}
	logger.Info("goodbye")
	return nil
}
