package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluuu/partybeaver-deployments/config"
	"github.com/fluuu/partybeaver-deployments/internal/text"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

const (
	flagEnvironment = "environment"
	flagConfig      = "config"
	flagEnvFile     = "env-file"

	defaultEnvironment = "development"
	defaultConfigFile  = "partybeaver.yml"
)

var (
	rootShort = "Deploy and maintain the PartyBeaver NFT contract"

	rootLong = text.LongDesc(`
		Deploys the upgradeable PartyBeaver contract behind an ERC1967 proxy and runs maintenance
		transactions against it.

		The wallet is derived from KEY_MNEMONIC and transactions are sent through
		WALLET_PROVIDER_URL. Both are read from the environment, from the --env-file or from the
		--config file. Deployment state is kept per environment under the deployments directory.
	`)
)

// Config holds the configuration of the command line.
type Config struct {
	// Optional: Logger is used by every command. When nil a logger is built from the log
	// level of the loaded configuration.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// NewCommand creates the partybeaver root command with all subcommands.
func NewCommand(cfg Config) *cobra.Command {
	cfg.Deps.applyDefaults()

	cmd := &cobra.Command{
		Use:           "partybeaver",
		Short:         rootShort,
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP(flagEnvironment, "e", defaultEnvironment, "Deployment environment")
	cmd.PersistentFlags().String(flagConfig, defaultConfigFile, "Path to the YAML config file, skipped when missing")
	cmd.PersistentFlags().String(flagEnvFile, config.DefaultEnvFile, "Path to the .env file, skipped when missing")

	cmd.AddCommand(newMigrateCmd(cfg))
	cmd.AddCommand(newUpgradeCmd(cfg))
	cmd.AddCommand(newSetBaseURICmd(cfg))
	cmd.AddCommand(newAccountsCmd(cfg))
	cmd.AddCommand(newAddressBookCmd(cfg))
	cmd.AddCommand(newMnemonicCmd(cfg))

	return cmd
}

// session is the loaded configuration and logger of one command run.
type session struct {
	cfg         *config.Config
	lggr        logger.Logger
	environment string
}

// close zeroes the secrets of the configuration and flushes the logger.
func (s *session) close() {
	s.cfg.Destroy()
	_ = s.lggr.Sync()
}

func loadSession(cmd *cobra.Command, cfg Config) (*session, error) {
	configFile := mustString(cmd.Flags().GetString(flagConfig))
	envFile := mustString(cmd.Flags().GetString(flagEnvFile))
	environment := mustString(cmd.Flags().GetString(flagEnvironment))
	if environment == "" {
		return nil, errors.New("environment must not be empty")
	}

	c, err := cfg.Deps.ConfigLoader(configFile, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lggr := cfg.Logger
	if lggr == nil {
		lvl, lerr := logger.ParseLevel(c.Log.Level)
		if lerr != nil {
			c.Destroy()
			return nil, lerr
		}
		if lggr, lerr = (logger.Config{Level: lvl}).New(); lerr != nil {
			c.Destroy()
			return nil, fmt.Errorf("failed to create logger: %w", lerr)
		}
	}

	return &session{cfg: c, lggr: lggr, environment: environment}, nil
}

// mustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func mustString(s string, _ error) string { return s }

// mustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func mustBool(b bool, _ error) bool { return b }

// mustInt returns the int value, ignoring the error.
func mustInt(i int, _ error) int { return i }
