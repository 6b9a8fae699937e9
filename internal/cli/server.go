package cli

import (
	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/server"
)

// ServerOptions holds flags for the server command.
type ServerOptions struct {
	Host string
	Port int
}

// NewServerCommand creates the server command.
func NewServerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServerOptions{}

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the web server",
		Long: `Run the web server until interrupted.

Requires DATA_PATH, GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET. On SIGINT or
SIGTERM the server stops accepting connections and waits up to 30 seconds
for in-flight requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "127.0.0.1", "address to listen on")
	cmd.Flags().IntVar(&opts.Port, "port", 8000, "port to listen on")

	return cmd
}

func runServer(cmd *cobra.Command, rootOpts *RootOptions, opts *ServerOptions) error {
	cfg, err := loadConfig(rootOpts, config.Server)
	if err != nil {
		return err
	}

	logger := newLogger(rootOpts, cmd.ErrOrStderr())

	srv, err := server.New(server.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		DBPath: cfg.DBPath(),
		GitHub: auth.GitHubConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			CallbackURL:  cfg.CallbackURL(),
			Timeout:      cfg.ProviderTimeout,
		},
		StateSecret:   cfg.StateSecret,
		SecureCookies: cfg.SecureCookies,
	}, logger)
	if err != nil {
		return err
	}

	// Start blocks until the context is cancelled (Ctrl+C or SIGTERM,
	// wired in main).
	return srv.Start(cmd.Context())
}
