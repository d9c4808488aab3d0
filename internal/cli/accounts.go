package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluuu/partybeaver-deployments/chain/evm/provider"
	"github.com/fluuu/partybeaver-deployments/internal/text"
)

var (
	accountsShort = "List the wallet accounts"

	accountsLong = text.LongDesc(`
		Derives the accounts of KEY_MNEMONIC and prints their checksummed addresses. The first
		account signs every transaction.
	`)

	accountsExample = text.Examples(`
		# Print the first three accounts
		partybeaver accounts -n 3
	`)
)

func newAccountsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Short:   accountsShort,
		Long:    accountsLong,
		Example: accountsExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAccounts(cmd, cfg, mustInt(cmd.Flags().GetInt("num")))
		},
	}

	cmd.Flags().IntP("num", "n", 0, "Number of accounts (default: wallet.num_addresses from the config)")

	return cmd
}

func runAccounts(cmd *cobra.Command, cfg Config, num int) error {
	s, err := loadSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	n := s.cfg.Wallet.NumAddresses
	if num < 0 {
		return fmt.Errorf("invalid number of accounts %d", num)
	}
	if num > 0 {
		n = uint(num)
	}

	w, err := s.wallet(n)
	if err != nil {
		return err
	}

	for i, a := range w.Addresses() {
		addr, err := provider.ChecksumAddress(a)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", i, addr.Hex())
	}

	return nil
}
