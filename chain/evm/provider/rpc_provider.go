package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

// ChainProvider sets up an evm.Chain.
type ChainProvider interface {
	// Initialize connects to the chain and generates its keys. Calling it again returns the
	// already initialized chain.
	Initialize(ctx context.Context) (evm.Chain, error)
	// Name returns a human readable name of the provider.
	Name() string
}

var _ ChainProvider = (*RPCChainProvider)(nil)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: A generator for the deployer key. Use TransactorFromMnemonic to sign with an
	// account derived from the wallet mnemonic.
	DeployerTransactorGen SignerGenerator
	// Required: At least one RPC must be provided to connect to the EVM node.
	RPCs []evm.RPC
	// Required: ConfirmFunctor generates the transaction confirmation function. If in doubt,
	// use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: ClientOpts are applied to the MultiClient.
	ClientOpts []func(client *evm.MultiClient)
	// Optional: Generators for additional user transactors.
	UsersTransactorGen []SignerGenerator
	// Optional: Logger is the logger to use. If not provided, a default logger will be used.
	Logger logger.Logger
}

func (c RPCChainProviderConfig) validate() error {
	if c.DeployerTransactorGen == nil {
		return errors.New("deployer transactor generator is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}
	if len(c.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	return nil
}

// RPCChainProvider connects to an EVM node through the wallet provider URLs. The chain
// selector is looked up from the node's chain ID.
type RPCChainProvider struct {
	config RPCChainProviderConfig

	chain *evm.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider.
func NewRPCChainProvider(config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{config: config}
}

// Initialize dials the RPCs, resolves the chain selector and generates the transactors.
func (p *RPCChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	if err := p.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	client, err := evm.NewMultiClient(p.config.Logger, p.config.RPCs, p.config.ClientOpts...)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to create multi-client: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to get chain id: %w", err)
	}

	selector, err := evm.SelectorFromChainID(chainID)
	if err != nil {
		return evm.Chain{}, err
	}

	deployerKey, err := p.config.DeployerTransactorGen.Generate(chainID)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	users := make([]*bind.TransactOpts, 0, len(p.config.UsersTransactorGen))
	for _, g := range p.config.UsersTransactorGen {
		u, gerr := g.Generate(chainID)
		if gerr != nil {
			return evm.Chain{}, fmt.Errorf("failed to generate user transactor: %w", gerr)
		}
		users = append(users, u)
	}

	confirmFunc, err := p.config.ConfirmFunctor.Generate(ctx, selector, client, deployerKey.From)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.chain = &evm.Chain{
		Selector:    selector,
		Client:      client,
		DeployerKey: deployerKey,
		Users:       users,
		Confirm:     confirmFunc,
	}
	p.config.Logger.Infow("Connected to chain", "chain", p.chain.String(), "deployer", deployerKey.From.Hex())

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}
