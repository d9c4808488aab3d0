// Package cli provides the partybeaver command line.
package cli

import (
	"context"
	"fmt"

	"github.com/cosmos/go-bip39"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/chain/evm/provider"
	"github.com/fluuu/partybeaver-deployments/config"
	"github.com/fluuu/partybeaver-deployments/maintenance"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

// ConfigLoaderFunc loads the configuration from a YAML file and an env file.
type ConfigLoaderFunc func(filePath, envFile string) (*config.Config, error)

// ConnectFunc connects to the chain of the wallet provider with deployer as the signing key.
type ConnectFunc func(
	ctx context.Context, lggr logger.Logger, cfg *config.Config,
	deployer provider.SignerGenerator, users []provider.SignerGenerator,
) (evm.Chain, error)

// SetBaseURIFunc runs the set base URI maintenance script.
type SetBaseURIFunc func(ctx context.Context, req maintenance.Request) maintenance.Result

// MnemonicGeneratorFunc creates a new mnemonic with the given entropy size in bits.
type MnemonicGeneratorFunc func(bits int) (string, error)

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// Connect dials the wallet provider.
	// Default: an RPC chain provider over WALLET_PROVIDER_URL
	Connect ConnectFunc

	// SetBaseURI runs the maintenance script.
	// Default: maintenance.SetBaseURI
	SetBaseURI SetBaseURIFunc

	// MnemonicGenerator creates new mnemonics.
	// Default: BIP-39 from crypto/rand entropy
	MnemonicGenerator MnemonicGeneratorFunc
}

func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.Connect == nil {
		d.Connect = defaultConnect
	}
	if d.SetBaseURI == nil {
		d.SetBaseURI = maintenance.SetBaseURI
	}
	if d.MnemonicGenerator == nil {
		d.MnemonicGenerator = defaultMnemonicGenerator
	}
}

func defaultConnect(
	ctx context.Context, lggr logger.Logger, cfg *config.Config,
	deployer provider.SignerGenerator, users []provider.SignerGenerator,
) (evm.Chain, error) {
	rpcs, err := evm.ParseRPCs(cfg.Wallet.ProviderURL)
	if err != nil {
		return evm.Chain{}, err
	}

	return provider.NewRPCChainProvider(provider.RPCChainProviderConfig{
		DeployerTransactorGen: deployer,
		UsersTransactorGen:    users,
		RPCs:                  rpcs,
		ConfirmFunctor:        provider.ConfirmFuncGeth(cfg.Tx.ConfirmTimeout),
		Logger:                lggr,
	}).Initialize(ctx)
}

func defaultMnemonicGenerator(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}

	return bip39.NewMnemonic(entropy)
}
