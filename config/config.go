// Package config loads the deployment tooling configuration from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fluuu/partybeaver-deployments/internal/secret"
)

const (
	DefaultDerivationPath = "m/44'/60'/0'/0"
	DefaultBaseURI        = "https://api.nft.fluuu.id/prod/token/"
	DefaultContractName   = "PartyBeaverUpgradeable"
	DefaultEnvFile        = ".env"
)

var (
	ErrMissingMnemonic    = errors.New("wallet mnemonic is not set (KEY_MNEMONIC)")
	ErrMissingProviderURL = errors.New("wallet provider url is not set (WALLET_PROVIDER_URL)")
)

// WalletConfig configures the HD wallet the scripts sign with.
//
// WARNING: Mnemonic is sensitive. Prefer KEY_MNEMONIC over setting it in a config file.
type WalletConfig struct {
	Mnemonic       *secret.Secret `mapstructure:"-" yaml:"mnemonic"`                                             // Secret
	ProviderURL    string         `mapstructure:"provider_url" yaml:"provider_url" validate:"omitempty,rpcurls"` // Comma separated, first is primary
	DerivationPath string         `mapstructure:"derivation_path" yaml:"derivation_path" validate:"required"`
	NumAddresses   uint           `mapstructure:"num_addresses" yaml:"num_addresses" validate:"min=1"`
}

// ContractConfig configures the deployed contract.
type ContractConfig struct {
	Name    string `mapstructure:"name" yaml:"name" validate:"required"`
	Version string `mapstructure:"version" yaml:"version" validate:"required,strictsemver"`
	BaseURI string `mapstructure:"base_uri" yaml:"base_uri" validate:"required,url"`
}

type ArtifactsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

type DeploymentsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// TxConfig configures how transactions are sent and confirmed.
type TxConfig struct {
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout" validate:"gt=0"`
	GasLimit       uint64        `mapstructure:"gas_limit" yaml:"gas_limit"` // 0 estimates the gas
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// Config wraps the entire configuration.
type Config struct {
	Wallet      WalletConfig      `mapstructure:"wallet" yaml:"wallet"`
	Contract    ContractConfig    `mapstructure:"contract" yaml:"contract"`
	Artifacts   ArtifactsConfig   `mapstructure:"artifacts" yaml:"artifacts"`
	Deployments DeploymentsConfig `mapstructure:"deployments" yaml:"deployments"`
	Tx          TxConfig          `mapstructure:"tx" yaml:"tx"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// RequireWallet checks that the wallet can be built. Commands that sign call it before
// touching the network.
func (c *Config) RequireWallet() error {
	var errs []error
	if c.Wallet.Mnemonic.Empty() {
		errs = append(errs, ErrMissingMnemonic)
	}
	if strings.TrimSpace(c.Wallet.ProviderURL) == "" {
		errs = append(errs, ErrMissingProviderURL)
	}

	return errors.Join(errs...)
}

// Destroy zeroes the secrets held by the config.
func (c *Config) Destroy() {
	c.Wallet.Mnemonic.Destroy()
}

// Load builds the config. Values come from, in order of precedence, the process environment,
// envFile and the YAML file at filePath. Missing files are skipped. Variables in envFile never
// override variables already set in the process environment.
func Load(filePath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Wallet.Mnemonic = secret.New(strings.TrimSpace(v.GetString("wallet.mnemonic")))

	if err := validate(cfg); err != nil {
		cfg.Destroy()

		return nil, err
	}

	return cfg, nil
}

var defaults = map[string]any{
	"wallet.derivation_path": DefaultDerivationPath,
	"wallet.num_addresses":   1,
	"contract.name":          DefaultContractName,
	"contract.version":       "1.0.0",
	"contract.base_uri":      DefaultBaseURI,
	"artifacts.dir":          "build/contracts",
	"deployments.dir":        "deployments",
	"tx.confirm_timeout":     "5m",
	"tx.gas_limit":           0,
	"log.level":              "info",
}

func setDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
}

// envBindings maps config keys to the environment variables that can set them. The first name
// is preferred, later names are legacy and only used when the earlier ones are unset.
var envBindings = map[string][]string{
	"wallet.mnemonic":        {"KEY_MNEMONIC"},
	"wallet.provider_url":    {"WALLET_PROVIDER_URL"},
	"wallet.derivation_path": {"WALLET_DERIVATION_PATH"},
	"wallet.num_addresses":   {"WALLET_NUM_ADDRESSES"},
	"contract.name":          {"CONTRACT_NAME"},
	"contract.version":       {"CONTRACT_VERSION"},
	"contract.base_uri":      {"CONTRACT_BASE_URI", "BASE_URI"},
	"artifacts.dir":          {"ARTIFACTS_DIR"},
	"deployments.dir":        {"DEPLOYMENTS_DIR"},
	"tx.confirm_timeout":     {"TX_CONFIRM_TIMEOUT"},
	"tx.gas_limit":           {"TX_GAS_LIMIT"},
	"log.level":              {"LOG_LEVEL"},
}

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
