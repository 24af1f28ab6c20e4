package probe

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/meridian/algo-wallet/internal/algod"
	"github/meridian/algo-wallet/internal/config"
	"github/meridian/algo-wallet/internal/util/command"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs the readiness probe",
		Long:  `Checks the configured algod node is reachable and healthy. Exits non-zero on failure.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)

			err := command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				client, err := algod.NewClient(cfg.Algod)
				if err != nil {
					return errors.Wrap(err, "failed to create algod client")
				}

				if err := client.Health(ctx); err != nil {
					return errors.Wrap(err, "node health check failed")
				}

				if verbose {
					fmt.Printf("node %s is healthy\n", cfg.Algod.URL)
				}

				return nil
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Readiness probe failed")
			}
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Print probe details")

	return cmd
}
