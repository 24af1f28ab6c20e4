package probe

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/meridian/algo-wallet/internal/config"
	"github/meridian/algo-wallet/internal/util/command"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs the liveness probe",
		Long:  `Verifies the process can load its configuration. Exits non-zero on failure.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)

			err := command.WithConfig(cmd.Context(), func(_ context.Context, cfg config.Service) error {
				if verbose {
					fmt.Printf("algod=%s mobile_api=%s\n", cfg.Algod.URL, cfg.MobileAPI.BaseURL)
				}
				return nil
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Liveness probe failed")
			}
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Print probe details")

	return cmd
}
