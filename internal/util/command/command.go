package command

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/meridian/algo-wallet/internal/config"
)

// NewSubcommandGroup groups subcommands under a parent that only prints its
// own help when called bare.
func NewSubcommandGroup(name string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: "Collection of " + name + " subcommands",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(subcommands...)

	return cmd
}

// WithConfig loads the service config from ENV, applies the logger settings
// and runs the closure with a cancellable context. Commands use this instead
// of repeating the bootstrap.
func WithConfig(ctx context.Context, closure func(ctx context.Context, cfg config.Service) error) error {
	cfg := config.DefaultServiceConfigFromEnv()

	applyLogger(cfg.Logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	return closure(ctx, cfg)
}

func applyLogger(cfg config.LoggerConfig) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(cfg.Level)

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = "15:04:05"
		}))
	}
}
