package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/chain/evm/provider"
	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/domain"
	"github.com/fluuu/partybeaver-deployments/internal/text"
	"github.com/fluuu/partybeaver-deployments/maintenance"
)

var (
	setBaseURIShort = "Set the token base URI of the deployed contract"

	setBaseURILong = text.LongDesc(`
		Sends setBaseURI from the first wallet account to the deployed PartyBeaver proxy and
		prints the JSON transaction response. The contract is looked up in the environment's
		address book and then in the networks section of the build artifact.
	`)

	setBaseURIExample = text.Examples(`
		# Set the base URI from the config (default https://api.nft.fluuu.id/prod/token/)
		partybeaver set-base-uri -e mainnet

		# Set a different base URI
		partybeaver set-base-uri -e testnet --uri https://api.nft.fluuu.id/staging/token/
	`)
)

func newSetBaseURICmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "set-base-uri",
		Short:   setBaseURIShort,
		Long:    setBaseURILong,
		Example: setBaseURIExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetBaseURI(cmd, cfg, mustString(cmd.Flags().GetString("uri")))
		},
	}

	cmd.Flags().String("uri", "", "Base URI (default: contract.base_uri from the config)")

	return cmd
}

func runSetBaseURI(cmd *cobra.Command, cfg Config, uri string) error {
	s, err := loadSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	if err = s.cfg.RequireWallet(); err != nil {
		return err
	}
	if uri == "" {
		uri = s.cfg.Contract.BaseURI
	}

	ab, err := domain.NewEnvDir(s.cfg.Deployments.Dir, s.environment).AddressBook()
	if err != nil {
		return err
	}

	res := cfg.Deps.SetBaseURI(cmd.Context(), maintenance.Request{
		Logger:         s.lggr,
		Mnemonic:       s.cfg.Wallet.Mnemonic,
		ProviderURL:    s.cfg.Wallet.ProviderURL,
		DerivationPath: s.cfg.Wallet.DerivationPath,
		ContractName:   s.cfg.Contract.Name,
		BaseURI:        uri,
		AddressBook:    ab,
		Artifacts:      deployment.ArtifactsDir(s.cfg.Artifacts.Dir),
		ConfirmTimeout: s.cfg.Tx.ConfirmTimeout,
		GasLimit:       s.cfg.Tx.GasLimit,
		Connect: func(ctx context.Context, signer provider.SignerGenerator) (evm.Chain, error) {
			return cfg.Deps.Connect(ctx, s.lggr, s.cfg, signer, nil)
		},
	})
	if res.Err != nil {
		return res.Err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Response)

	return nil
}
