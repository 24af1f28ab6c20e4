package params

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/meridian/algo-wallet/internal/algod"
	"github/meridian/algo-wallet/internal/config"
	"github/meridian/algo-wallet/internal/util/command"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Prints the node's suggested transaction parameters",
		Long:  `Fetches suggested transaction parameters from the configured algod node and prints them as JSON, with the validity window already applied.`,
		Run: func(cmd *cobra.Command, _ []string) {
			err := command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				client, err := algod.NewClient(cfg.Algod)
				if err != nil {
					return errors.Wrap(err, "failed to create algod client")
				}

				p, err := client.SuggestedParams(ctx)
				if err != nil {
					return err
				}

				out, err := json.MarshalIndent(p, "", "  ")
				if err != nil {
					return errors.Wrap(err, "failed to marshal params")
				}
				fmt.Println(string(out))

				return nil
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to fetch params")
			}
		},
	}
}
