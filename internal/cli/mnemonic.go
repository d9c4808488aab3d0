package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluuu/partybeaver-deployments/internal/text"
)

var (
	mnemonicShort = "Mnemonic helpers"

	mnemonicGenerateLong = text.LongDesc(`
		Generates a new BIP-39 mnemonic to use as KEY_MNEMONIC. Store it in a secret manager; it
		is printed once and not saved.
	`)

	mnemonicGenerateExample = text.Examples(`
		# Generate a 24 word mnemonic
		partybeaver mnemonic generate --words 24
	`)
)

func newMnemonicCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemonic",
		Short: mnemonicShort,
	}

	generate := &cobra.Command{
		Use:     "generate",
		Short:   "Generate a new mnemonic",
		Long:    mnemonicGenerateLong,
		Example: mnemonicGenerateExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			words := mustInt(cmd.Flags().GetInt("words"))

			var bits int
			switch words {
			case 12:
				bits = 128
			case 24:
				bits = 256
			default:
				return fmt.Errorf("unsupported number of words %d, use 12 or 24", words)
			}

			m, err := cfg.Deps.MnemonicGenerator(bits)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m)

			return nil
		},
	}
	generate.Flags().Int("words", 12, "Number of words, 12 or 24")

	cmd.AddCommand(generate)

	return cmd
}
