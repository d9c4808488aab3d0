package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ConfirmFunc is a function that takes a transaction, waits for the transaction to be confirmed,
// and returns the receipt.
type ConfirmFunc func(tx *types.Transaction) (*types.Receipt, error)

// OnchainClient is an EVM chain client. The geth binding interfaces are enough to deploy and
// call contracts, the extra methods cover balance and nonce lookups.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Chain represents a connected EVM network together with the keys used to transact on it.
type Chain struct {
	Selector uint64

	Client OnchainClient
	// DeployerKey signs every transaction sent by the migrations and the maintenance commands.
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc
	// Users are additional derived accounts. These are distinct from the deployer key.
	Users []*bind.TransactOpts
}

// ChainSelector returns the chain selector of the chain.
func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// ChainID returns the EVM chain ID for the selector, or 0 if the selector is unknown.
func (c Chain) ChainID() uint64 {
	details, ok := chainsel.ChainBySelector(c.Selector)
	if !ok {
		return 0
	}

	return details.EvmChainID
}

// Name returns the name of the chain, falling back to the selector when it has no name.
func (c Chain) Name() string {
	details, ok := chainsel.ChainBySelector(c.Selector)
	if !ok || details.Name == "" {
		return strconv.FormatUint(c.Selector, 10)
	}

	return details.Name
}

// String returns chain name and selector "<name> (<selector>)".
func (c Chain) String() string {
	return fmt.Sprintf("%s (%d)", c.Name(), c.Selector)
}

// SelectorFromChainID maps an EVM chain ID to its chain selector.
func SelectorFromChainID(chainID *big.Int) (uint64, error) {
	if chainID == nil {
		return 0, errors.New("chain id is nil")
	}

	details, err := chainsel.GetChainDetailsByChainIDAndFamily(chainID.String(), chainsel.FamilyEVM)
	if err != nil {
		return 0, fmt.Errorf("no chain selector for evm chain id %s: %w", chainID, err)
	}

	return details.ChainSelector, nil
}
