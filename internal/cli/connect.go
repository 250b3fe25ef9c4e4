package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dpshade/permahub/internal/client"
	"github.com/dpshade/permahub/internal/config"
	"github.com/dpshade/permahub/internal/transport"
	"github.com/dpshade/permahub/internal/wallet"
)

// clientFlags are shared by the commands that talk to a hub.
type clientFlags struct {
	KeyFile string
	HubURL  string
	HubID   string
}

func (c *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.KeyFile, "key", "", "key file (default client.key_file)")
	cmd.Flags().StringVar(&c.HubURL, "hub-url", "", "hub base URL (default client.hub_url)")
	cmd.Flags().StringVar(&c.HubID, "hub-id", "", "hub identity (default client.hub_id)")
}

// session is everything a client command needs.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	wallet *wallet.Wallet
	client *client.Client
}

// connect loads config and key and builds a hub client. Flags override
// the client section of the config.
func (o *RootOptions) connect(cmd *cobra.Command, flags clientFlags) (*session, error) {
	boot := o.newLogger(config.LogConfig{}, cmd.ErrOrStderr())
	loader, err := o.loadConfig(boot)
	if err != nil {
		return nil, err
	}
	cfg := *loader.Config()
	if flags.KeyFile != "" {
		cfg.Client.KeyFile = flags.KeyFile
	}
	if flags.HubURL != "" {
		cfg.Client.HubURL = flags.HubURL
	}
	if flags.HubID != "" {
		cfg.Client.HubID = flags.HubID
	}
	logger := o.newLogger(cfg.Log, cmd.ErrOrStderr())

	w, created, err := wallet.LoadOrGenerate(cfg.Client.KeyFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, CodeKey+": failed to load key", err)
	}
	if created {
		logger.Info("generated new key", "path", cfg.Client.KeyFile, "id", w.ID())
	}

	var conn transport.Conn
	if o.Dial != nil {
		conn = o.Dial(&cfg)
	} else {
		conn = transport.NewHTTPClient(cfg.Client.HubURL, cfg.Client.Timeout)
	}

	c := client.New(conn, client.Config{
		HubID:        cfg.Client.HubID,
		Timeout:      cfg.Client.Timeout,
		DefaultLimit: cfg.Client.DefaultLimit,
	}, client.WithSigner(w), client.WithLogger(logger))

	return &session{cfg: &cfg, logger: logger, wallet: w, client: c}, nil
}
