package provider

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
)

var (
	// simChainID is the chain ID of the simulated backend, always 1337.
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is the balance given to every account of the simulated chain.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: DeployerTransactorGen generates the deployer key. A random key is used when
	// not set.
	DeployerTransactorGen SignerGenerator
	// Optional: NumAdditionalAccounts is the number of random user accounts to generate.
	NumAdditionalAccounts uint
	// Optional: PrefundAddresses are funded in the genesis block along with the generated
	// accounts.
	PrefundAddresses []common.Address
	// Optional: BlockTime configures the time between blocks being committed. By default blocks
	// are only committed when a transaction is confirmed.
	BlockTime time.Duration
}

var _ ChainProvider = (*SimChainProvider)(nil)

// SimChainProvider manages a simulated EVM chain backed by go-ethereum's in memory simulated
// backend.
type SimChainProvider struct {
	t      *testing.T
	config SimChainProviderConfig

	chain  *evm.Chain
	client *SimClient
}

// NewSimChainProvider creates a new SimChainProvider.
func NewSimChainProvider(t *testing.T, config SimChainProviderConfig) *SimChainProvider {
	t.Helper()

	return &SimChainProvider{t: t, config: config}
}

// Initialize creates the simulated backend with all accounts prefunded and returns the chain.
func (p *SimChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	selector, err := evm.SelectorFromChainID(simChainID)
	require.NoError(p.t, err)

	gen := p.config.DeployerTransactorGen
	if gen == nil {
		gen = TransactorRandom()
	}
	deployer, err := gen.Generate(simChainID)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	genesis := types.GenesisAlloc{
		deployer.From: {Balance: prefundAmountWei},
	}
	for _, addr := range p.config.PrefundAddresses {
		genesis[addr] = types.Account{Balance: prefundAmountWei}
	}

	users := make([]*bind.TransactOpts, 0, p.config.NumAdditionalAccounts)
	for range p.config.NumAdditionalAccounts {
		u, uerr := TransactorRandom().Generate(simChainID)
		require.NoError(p.t, uerr)

		users = append(users, u)
		genesis[u.From] = types.Account{Balance: prefundAmountWei}
	}

	backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(50_000_000))
	backend.Commit()
	p.t.Cleanup(func() { _ = backend.Close() })

	if p.config.BlockTime > 0 {
		startAutoMine(p.t, backend, p.config.BlockTime)
	}

	client := NewSimClient(p.t, backend)

	p.client = client
	p.chain = &evm.Chain{
		Selector:    selector,
		Client:      client,
		DeployerKey: deployer,
		Users:       users,
		Confirm: func(tx *types.Transaction) (*types.Receipt, error) {
			if tx == nil {
				return nil, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", selector)
			}

			client.Commit()

			waitCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()

			receipt, werr := bind.WaitMined(waitCtx, client, tx)
			if werr != nil {
				return nil, fmt.Errorf("tx %s failed to confirm for selector %d: %w",
					tx.Hash().Hex(), selector, werr,
				)
			}

			return checkReceipt(waitCtx, client, deployer.From, tx, receipt, selector)
		},
	}

	return *p.chain, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// Client returns the simulated client. Initialize must be called first.
func (p *SimChainProvider) Client() *SimClient {
	return p.client
}

// startAutoMine commits a block every blockTime until the test is done.
func startAutoMine(t *testing.T, backend *simulated.Backend, blockTime time.Duration) {
	t.Helper()

	ctx := t.Context()
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
