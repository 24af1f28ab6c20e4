package sign

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/meridian/algo-wallet/internal/account"
	"github/meridian/algo-wallet/internal/algod"
	"github/meridian/algo-wallet/internal/config"
	"github/meridian/algo-wallet/internal/keystore"
	"github/meridian/algo-wallet/internal/signing"
	"github/meridian/algo-wallet/internal/txn"
	"github/meridian/algo-wallet/internal/util/command"
)

const (
	fromFlag     = "from"
	toFlag       = "to"
	amountFlag   = "amount"
	noteFlag     = "note"
	passwordFlag = "password"
	submitFlag   = "submit"
)

// New returns the sign command: compose a payment, sign it with a locally
// stored key and print (or submit) the signed envelope.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Composes and signs a payment transaction",
		Long: `Composes a payment with suggested parameters from the configured node,
signs it with the sender's key from the local keystore and prints the signed
envelope as base64. With --submit the envelope is sent to the node instead.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return run(ctx, cmd, cfg)
			}); err != nil {
				log.Fatal().Err(err).Msg("Failed to sign transaction")
			}
		},
	}

	cmd.Flags().String(fromFlag, "", "Sender address (required)")
	cmd.Flags().String(toFlag, "", "Receiver address (required)")
	cmd.Flags().Uint64(amountFlag, 0, "Amount in microalgos (required)")
	cmd.Flags().String(noteFlag, "", "Optional note")
	cmd.Flags().String(passwordFlag, "", "Keystore password (required)")
	cmd.Flags().Bool(submitFlag, false, "Submit the signed transaction to the node")
	_ = cmd.MarkFlagRequired(fromFlag)
	_ = cmd.MarkFlagRequired(toFlag)
	_ = cmd.MarkFlagRequired(amountFlag)
	_ = cmd.MarkFlagRequired(passwordFlag)

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg config.Service) error {
	from, _ := cmd.Flags().GetString(fromFlag)
	to, _ := cmd.Flags().GetString(toFlag)
	amount, _ := cmd.Flags().GetUint64(amountFlag)
	note, _ := cmd.Flags().GetString(noteFlag)
	password, _ := cmd.Flags().GetString(passwordFlag)
	submit, _ := cmd.Flags().GetBool(submitFlag)

	sender, err := txn.ParseAddress(from)
	if err != nil {
		return errors.Wrap(err, "invalid sender address")
	}
	receiver, err := txn.ParseAddress(to)
	if err != nil {
		return errors.Wrap(err, "invalid receiver address")
	}

	client, err := algod.NewClient(cfg.Algod)
	if err != nil {
		return errors.Wrap(err, "failed to create algod client")
	}

	p, err := client.SuggestedParams(ctx)
	if err != nil {
		return err
	}

	var noteBytes []byte
	if note != "" {
		noteBytes = []byte(note)
	}
	composed, err := txn.Compose(txn.Draft{
		Kind:     txn.KindPayment,
		Sender:   sender,
		Receiver: receiver,
		Amount:   amount,
		Note:     noteBytes,
	}, *p)
	if err != nil {
		return errors.Wrap(err, "failed to compose transaction")
	}

	keystoreService, err := keystore.NewService(cfg.Keystore.Dir)
	if err != nil {
		return errors.Wrap(err, "failed to open keystore")
	}

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: from})

	orchestrator := signing.NewOrchestrator(
		store,
		signing.NewLocalSigner(signing.NewKeystoreKeyring(keystoreService, password)),
		nil,
		nil,
		signing.NewMetrics(nil),
	)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: from, Raw: composed.Raw},
	})
	signed, err := orchestrator.SignSession(ctx, session, signing.Options{})
	if err != nil {
		return err
	}

	if submit {
		txID, err := client.SubmitRawTransaction(ctx, signed[0])
		if err != nil {
			return err
		}
		fmt.Println(txID)

		return nil
	}

	fmt.Println(base64.StdEncoding.EncodeToString(signed[0]))

	return nil
}
