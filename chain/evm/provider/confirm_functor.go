package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
)

// ConfirmFunctor creates the confirmation function used by an evm.Chain.
type ConfirmFunctor interface {
	// Generate returns a function that confirms transactions on the chain.
	Generate(
		ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
	) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that polls the client for the receipt.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	cf := &confirmFuncGeth{
		tickInterval:     1 * time.Second, // same as bind.WaitMined
		waitMinedTimeout: waitMinedTimeout,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

// WithTickInterval sets the receipt polling interval.
func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.tickInterval = interval
	}
}

type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
}

// Generate returns a function that confirms transactions using the client. A reverted
// transaction is an error carrying the decoded revert reason when one is available.
func (g *confirmFuncGeth) Generate(
	ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	return func(tx *types.Transaction) (*types.Receipt, error) {
		if tx == nil {
			return nil, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", selector)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, g.tickInterval, client, tx.Hash())
		if err != nil {
			return nil, fmt.Errorf("tx %s failed to confirm for selector %d: %w",
				tx.Hash().Hex(), selector, err,
			)
		}

		return checkReceipt(ctxTimeout, client, from, tx, receipt, selector)
	}, nil
}

// checkReceipt turns a failed receipt into an error.
func checkReceipt(
	ctx context.Context, caller ContractCaller, from common.Address, tx *types.Transaction,
	receipt *types.Receipt, selector uint64,
) (*types.Receipt, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt was nil for tx %s for selector %d", tx.Hash().Hex(), selector)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		reason, err := getErrorReasonFromTx(ctx, caller, from, tx, receipt)
		if err == nil && reason != "" {
			return receipt, fmt.Errorf("tx %s reverted for selector %d: %s",
				tx.Hash().Hex(), selector, reason,
			)
		}

		return receipt, fmt.Errorf("tx %s reverted, could not decode error reason for selector %d",
			tx.Hash().Hex(), selector,
		)
	}

	return receipt, nil
}

// WaitMinedWithInterval polls for the receipt every tick until it exists or ctx is done.
func WaitMinedWithInterval(ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash) (*types.Receipt, error) {
	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()

	for {
		receipt, err := b.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}
