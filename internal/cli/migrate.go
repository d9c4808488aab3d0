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
	migrateShort = "Run pending migrations"

	migrateLong = text.LongDesc(`
		Runs the migrations that have not completed in the environment yet. The deploy migration
		deploys PartyBeaverUpgradeable behind an ERC1967 proxy, runs initialize() once through the
		proxy constructor and prints the owner and the proxy address.

		A contract that is already recorded in the address book is not deployed again unless
		--force is given. Operation reports are saved after every run, so a failed migration
		resumes after its last successful transaction.
	`)

	migrateExample = text.Examples(`
		# Run all pending migrations on the testnet environment
		partybeaver migrate -e testnet

		# Redeploy the contract behind a new proxy
		partybeaver migrate -e testnet --only 0002_deploy_contracts --force
	`)
)

func newMigrateCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "migrate",
		Short:   migrateShort,
		Long:    migrateLong,
		Example: migrateExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, cfg,
				mustBool(cmd.Flags().GetBool("force")),
				mustString(cmd.Flags().GetString("only")),
			)
		},
	}

	cmd.Flags().Bool("force", false, "Rerun completed migrations and redeploy recorded contracts")
	cmd.Flags().String("only", "", "Run only the migration with this key")

	return cmd
}

func runMigrate(cmd *cobra.Command, cfg Config, force bool, only string) error {
	s, err := loadSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	version, err := semver.StrictNewVersion(s.cfg.Contract.Version)
	if err != nil {
		return fmt.Errorf("invalid contract version: %w", err)
	}

	chain, err := s.connect(cmd.Context(), cfg.Deps)
	if err != nil {
		return err
	}
	defer closeChain(chain)

	runner := migrations.NewRunner(migrations.RunnerConfig{
		Logger:     s.lggr,
		Registry:   migrations.Default(s.cfg.Contract.Name, version),
		EnvDir:     domain.NewEnvDir(s.cfg.Deployments.Dir, s.environment),
		Chain:      chain,
		Artifacts:  deployment.ArtifactsDir(s.cfg.Artifacts.Dir),
		GetContext: cmd.Context,
		Out:        cmd.OutOrStdout(),
	})

	applied, err := runner.Run(migrations.RunOptions{Force: force, Only: only})
	if err != nil {
		return err
	}

	s.lggr.Infow("Migrations finished", "environment", s.environment, "applied", applied)

	return nil
}
