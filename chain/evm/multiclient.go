package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

const (
	// Default retry configuration for RPC calls
	RPCDefaultRetryAttempts = 1
	RPCDefaultRetryDelay    = 1000 * time.Millisecond
	RPCDefaultRetryTimeout  = 10 * time.Second

	// Default retry configuration for dialing RPC endpoints
	RPCDefaultDialRetryAttempts = 1
	RPCDefaultDialRetryDelay    = 1000 * time.Millisecond
	RPCDefaultDialTimeout       = 10 * time.Second

	// Default timeout for health checks
	RPCDefaultHealthCheckTimeout = 2 * time.Second
)

// RPC is a single wallet provider endpoint.
type RPC struct {
	Name string
	URL  string
}

// ParseRPCs splits a comma separated list of provider URLs. The first URL is the primary
// endpoint and the rest are backups tried in order.
func ParseRPCs(urls string) ([]RPC, error) {
	var rpcs []RPC
	for i, u := range strings.Split(urls, ",") {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		rpcs = append(rpcs, RPC{Name: fmt.Sprintf("rpc-%d", i), URL: u})
	}

	if len(rpcs) == 0 {
		return nil, errors.New("no wallet provider url configured")
	}

	return rpcs, nil
}

type RetryConfig struct {
	Attempts     uint
	Delay        time.Duration
	Timeout      time.Duration
	DialAttempts uint
	DialDelay    time.Duration
	DialTimeout  time.Duration
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     RPCDefaultRetryAttempts,
		Delay:        RPCDefaultRetryDelay,
		Timeout:      RPCDefaultRetryTimeout,
		DialAttempts: RPCDefaultDialRetryAttempts,
		DialDelay:    RPCDefaultDialRetryDelay,
		DialTimeout:  RPCDefaultDialTimeout,
	}
}

// WithRetryConfig overrides the default retry configuration of the MultiClient.
func WithRetryConfig(cfg RetryConfig) func(*MultiClient) {
	return func(mc *MultiClient) {
		mc.RetryConfig = cfg
	}
}

var _ OnchainClient = (*MultiClient)(nil)

// MultiClient is an OnchainClient that fails over between several RPC endpoints. Every call
// is retried against the current primary before moving on to the backups; a backup that
// succeeds is promoted to primary.
type MultiClient struct {
	*ethclient.Client
	Backups     []*ethclient.Client
	RetryConfig RetryConfig

	lggr logger.Logger
	mu   sync.RWMutex
}

// NewMultiClient dials every RPC, health checks it and keeps the ones that answer.
func NewMultiClient(lggr logger.Logger, rpcs []RPC, opts ...func(*MultiClient)) (*MultiClient, error) {
	if len(rpcs) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}

	mc := &MultiClient{
		lggr:        lggr.Named("multiclient"),
		RetryConfig: defaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(mc)
	}

	clients := make([]*ethclient.Client, 0, len(rpcs))
	for i, r := range rpcs {
		client, err := mc.dialWithRetry(r)
		if err != nil {
			mc.lggr.Warnf("failed to dial client %d for RPC %q, trying with the next one: %v", i, r.Name, err)

			continue
		}
		if err := mc.rpcHealthCheck(context.Background(), client); err != nil {
			mc.lggr.Warnf("health check failed for client %d for RPC %q, trying with the next one: %v", i, r.Name, err)
			client.Close()

			continue
		}
		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, errors.New("no valid RPC clients created")
	}

	mc.Client = clients[0]
	mc.Backups = clients[1:]

	return mc, nil
}

// Close closes every underlying connection.
func (mc *MultiClient) Close() {
	for _, c := range mc.clients() {
		c.Close()
	}
}

// rpcHealthCheck calls eth_blockNumber on the client.
func (mc *MultiClient) rpcHealthCheck(ctx context.Context, client *ethclient.Client) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, RPCDefaultHealthCheckTimeout)
	defer cancel()

	if _, err := client.BlockNumber(timeoutCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

// SendTransaction broadcasts the signed transaction, failing over to the backups like every
// other call. Backups receive the same signed bytes, so the nonce and the hash do not change.
func (mc *MultiClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := withBackups(ctx, mc, "SendTransaction", func(ctx context.Context, c *ethclient.Client) (struct{}, error) {
		return struct{}{}, c.SendTransaction(ctx, tx)
	})

	return err
}

func (mc *MultiClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return withBackups(ctx, mc, "CallContract", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CallContract(ctx, msg, blockNumber)
	})
}

func (mc *MultiClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return withBackups(ctx, mc, "CodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CodeAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	return withBackups(ctx, mc, "StorageAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.StorageAt(ctx, account, key, blockNumber)
	})
}

func (mc *MultiClient) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	return withBackups(ctx, mc, "NonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.NonceAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return withBackups(ctx, mc, "BalanceAt", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.BalanceAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) ChainID(ctx context.Context) (*big.Int, error) {
	return withBackups(ctx, mc, "ChainID", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.ChainID(ctx)
	})
}

func (mc *MultiClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return withBackups(ctx, mc, "HeaderByNumber", func(ctx context.Context, c *ethclient.Client) (*types.Header, error) {
		return c.HeaderByNumber(ctx, number)
	})
}

func (mc *MultiClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return withBackups(ctx, mc, "SuggestGasPrice", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasPrice(ctx)
	})
}

func (mc *MultiClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return withBackups(ctx, mc, "SuggestGasTipCap", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasTipCap(ctx)
	})
}

func (mc *MultiClient) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return withBackups(ctx, mc, "PendingCodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.PendingCodeAt(ctx, account)
	})
}

func (mc *MultiClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return withBackups(ctx, mc, "PendingNonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.PendingNonceAt(ctx, account)
	})
}

func (mc *MultiClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return withBackups(ctx, mc, "EstimateGas", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.EstimateGas(ctx, call)
	})
}

func (mc *MultiClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return withBackups(ctx, mc, "TransactionReceipt", func(ctx context.Context, c *ethclient.Client) (*types.Receipt, error) {
		return c.TransactionReceipt(ctx, txHash)
	})
}

func (mc *MultiClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return withBackups(ctx, mc, "FilterLogs", func(ctx context.Context, c *ethclient.Client) ([]types.Log, error) {
		return c.FilterLogs(ctx, q)
	})
}

// WaitMined waits for a transaction to be mined on any of the clients and returns the receipt.
// The retry timeout does not apply here, bound the wait with the context instead.
func (mc *MultiClient) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	mc.lggr.Debugw("Waiting for tx to be mined", "tx", tx.Hash().Hex())

	resultCh := make(chan *types.Receipt)
	doneCh := make(chan struct{})
	defer close(doneCh)

	for _, client := range mc.clients() {
		go func(client *ethclient.Client) {
			receipt, err := bind.WaitMined(ctx, client, tx)
			if err != nil {
				mc.lggr.Warnw("WaitMined failed", "tx", tx.Hash().Hex(), "error", err)
				return
			}
			select {
			case resultCh <- receipt:
			case <-doneCh:
			}
		}(client)
	}

	select {
	case receipt := <-resultCh:
		mc.lggr.Debugw("Tx mined", "tx", tx.Hash().Hex(), "block", receipt.BlockNumber)
		return receipt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// withBackups runs op against the primary and then each backup until one succeeds. Each
// client gets RetryConfig.Attempts tries.
func withBackups[T any](
	ctx context.Context, mc *MultiClient, opName string, op func(context.Context, *ethclient.Client) (T, error),
) (T, error) {
	var (
		result  T
		lastErr error
	)
	traceID := uuid.New().String()

	for idx, client := range mc.clients() {
		retries := 0
		err := retry.Do(func() error {
			timeoutCtx, cancel := ensureTimeout(ctx, mc.RetryConfig.Timeout)
			defer cancel()

			r, err := op(timeoutCtx, client)
			if err != nil {
				lastErr = err
				mc.lggr.Warnw("RPC call failed", "traceID", traceID, "op", opName,
					"clientIndex", idx, "error", maybeDataErr(err))

				return err
			}
			result = r

			return nil
		},
			retry.Context(ctx),
			retry.Attempts(mc.RetryConfig.Attempts),
			retry.Delay(mc.RetryConfig.Delay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(uint, error) { retries++ }),
		)
		if err == nil {
			if retries > 0 {
				mc.lggr.Infow("RPC call succeeded after retry", "traceID", traceID, "op", opName,
					"clientIndex", idx, "retries", retries)
			}
			mc.promote(idx)

			return result, nil
		}
	}

	var zero T

	return zero, errors.Join(lastErr, fmt.Errorf("op %s: all rpc clients failed", opName))
}

func (mc *MultiClient) dialWithRetry(r RPC) (*ethclient.Client, error) {
	var client *ethclient.Client
	err := retry.Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), mc.RetryConfig.DialTimeout)
		defer cancel()

		c, err := ethclient.DialContext(ctx, r.URL)
		if err != nil {
			mc.lggr.Warnw("Dialing RPC failed", "rpc", r.Name, "error", err)
			return err
		}
		client = c

		return nil
	},
		retry.Attempts(mc.RetryConfig.DialAttempts),
		retry.Delay(mc.RetryConfig.DialDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC %s: %w", r.Name, err)
	}

	return client, nil
}

// ensureTimeout keeps the parent deadline if it has one, otherwise applies timeout.
func ensureTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, timeout)
}

// promote makes the client at idx the primary. Clients that failed before it move to the
// end of the backup list.
func (mc *MultiClient) promote(idx int) {
	if idx < 1 {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if idx > len(mc.Backups) {
		return
	}

	newPrimary := mc.Backups[idx-1]
	reordered := make([]*ethclient.Client, 0, len(mc.Backups))
	reordered = append(reordered, mc.Backups[idx:]...)
	reordered = append(reordered, mc.Backups[:idx-1]...)
	reordered = append(reordered, mc.Client)

	mc.Backups = reordered
	mc.Client = newPrimary
}

func (mc *MultiClient) clients() []*ethclient.Client {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]*ethclient.Client{mc.Client}, mc.Backups...)
}

func maybeDataErr(err error) error {
	var d rpc.DataError
	if errors.As(err, &d) {
		return fmt.Errorf("%s: %v", d.Error(), d.ErrorData())
	}

	return err
}
