package cli

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/domain"
	"github.com/fluuu/partybeaver-deployments/internal/text"
	"github.com/fluuu/partybeaver-deployments/migrations"
)

var (
	upgradeShort = "Upgrade the proxy to a new implementation"

	upgradeLong = text.LongDesc(`
		Deploys a new PartyBeaverUpgradeable implementation and points the recorded proxy at it
		with upgradeToAndCall. The version must be newer than the latest recorded implementation
		unless --force is given.
	`)

	upgradeExample = text.Examples(`
		# Upgrade to the contract version from the config
		partybeaver upgrade -e testnet

		# Upgrade to an explicit version
		partybeaver upgrade -e testnet --version 1.1.0
	`)
)

func newUpgradeCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "upgrade",
		Short:   upgradeShort,
		Long:    upgradeLong,
		Example: upgradeExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpgrade(cmd, cfg,
				mustString(cmd.Flags().GetString("version")),
				mustBool(cmd.Flags().GetBool("force")),
			)
		},
	}

	cmd.Flags().String("version", "", "Implementation version (default: contract.version from the config)")
	cmd.Flags().Bool("force", false, "Upgrade even when the version is not newer")

	return cmd
}

func runUpgrade(cmd *cobra.Command, cfg Config, versionFlag string, force bool) error {
	s, err := loadSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	if versionFlag == "" {
		versionFlag = s.cfg.Contract.Version
	}
	version, err := semver.StrictNewVersion(versionFlag)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", versionFlag, err)
	}

	chain, err := s.connect(cmd.Context(), cfg.Deps)
	if err != nil {
		return err
	}
	defer closeChain(chain)

	runner := migrations.NewRunner(migrations.RunnerConfig{
		Logger:     s.lggr,
		EnvDir:     domain.NewEnvDir(s.cfg.Deployments.Dir, s.environment),
		Chain:      chain,
		Artifacts:  deployment.ArtifactsDir(s.cfg.Artifacts.Dir),
		GetContext: cmd.Context,
		Out:        cmd.OutOrStdout(),
	})

	return runner.Upgrade(migrations.UpgradeContracts{ContractName: s.cfg.Contract.Name, Version: version}, force)
}
