// Package maintenance holds operator scripts that change a deployed PartyBeaver contract.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/chain/evm/provider"
	"github.com/fluuu/partybeaver-deployments/config"
	"github.com/fluuu/partybeaver-deployments/contracts/partybeaver"
	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/internal/secret"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

const defaultConfirmTimeout = 5 * time.Minute

// ConnectFunc connects to the chain with signer as the deployer key.
type ConnectFunc func(ctx context.Context, signer provider.SignerGenerator) (evm.Chain, error)

// Request configures a SetBaseURI run.
type Request struct {
	Logger logger.Logger
	// Mnemonic is destroyed once the wallet has been derived.
	Mnemonic       *secret.Secret
	ProviderURL    string
	DerivationPath string
	ContractName   string
	// BaseURI defaults to config.DefaultBaseURI.
	BaseURI        string
	AddressBook    deployment.AddressBook
	Artifacts      deployment.ArtifactsDir
	ConfirmTimeout time.Duration
	GasLimit       uint64
	// Optional: Connect replaces the RPC connection to ProviderURL.
	Connect ConnectFunc
}

// Result is either the JSON encoded transaction response or the error that stopped the run.
// Exactly one of the fields is set.
type Result struct {
	Response string
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func failed(err error) Result {
	return Result{Err: err}
}

// Response is the JSON shape of a successful run: the transaction hash, its receipt and the
// contract events it emitted.
type Response struct {
	Tx      common.Hash              `json:"tx"`
	Receipt *types.Receipt           `json:"receipt"`
	Logs    []partybeaver.DecodedLog `json:"logs"`
}

// SetBaseURI sends setBaseURI(req.BaseURI) to the deployed contract from the first account of
// the wallet and waits for the transaction to be mined. Nothing is retried.
func SetBaseURI(ctx context.Context, req Request) Result {
	lggr := req.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}
	baseURI := req.BaseURI
	if baseURI == "" {
		baseURI = config.DefaultBaseURI
	}
	if req.ConfirmTimeout <= 0 {
		req.ConfirmTimeout = defaultConfirmTimeout
	}

	wallet, err := provider.NewHDWallet(req.Mnemonic, req.DerivationPath, 1)
	req.Mnemonic.Destroy()
	if err != nil {
		return failed(err)
	}

	from, err := provider.ChecksumAddress(wallet.Addresses()[0])
	if err != nil {
		return failed(err)
	}

	connect := req.Connect
	if connect == nil {
		connect = rpcConnect(lggr, req.ProviderURL, req.ConfirmTimeout)
	}
	chain, err := connect(ctx, provider.TransactorFromMnemonic(wallet, 0, provider.WithGasLimit(req.GasLimit)))
	if err != nil {
		return failed(fmt.Errorf("failed to connect to wallet provider: %w", err))
	}
	if closer, ok := chain.Client.(interface{ Close() }); ok {
		defer closer.Close()
	}
	if chain.DeployerKey.From != from {
		return failed(fmt.Errorf("signer %s does not match wallet address %s", chain.DeployerKey.From.Hex(), from.Hex()))
	}

	addr, err := resolveContract(req, chain)
	if err != nil {
		return failed(err)
	}

	lggr.Infow("Setting base URI", "contract", addr.Hex(), "from", from.Hex(), "uri", baseURI,
		"chain", chain.String())

	opts := *chain.DeployerKey
	opts.From = from
	opts.Context = ctx

	pb := partybeaver.NewPartyBeaver(addr, chain.Client)
	tx, err := pb.SetBaseURI(&opts, baseURI)
	if err != nil {
		return failed(fmt.Errorf("failed to send setBaseURI: %w", err))
	}

	receipt, err := chain.Confirm(tx)
	if err != nil {
		return failed(err)
	}

	logs, err := pb.DecodeLogs(receipt.Logs)
	if err != nil {
		return failed(err)
	}

	b, err := json.Marshal(Response{Tx: tx.Hash(), Receipt: receipt, Logs: logs})
	if err != nil {
		return failed(fmt.Errorf("failed to encode response: %w", err))
	}

	return Result{Response: string(b)}
}

// resolveContract finds the proxy in the address book, falling back to the networks section
// of the build artifact.
func resolveContract(req Request, chain evm.Chain) (common.Address, error) {
	typ := deployment.ContractType(req.ContractName)

	if req.AddressBook != nil {
		addr, err := deployment.ResolveDeployed(req.AddressBook, chain.Selector, typ, deployment.LabelProxy)
		if err == nil || !errors.Is(err, deployment.ErrNotDeployed) {
			return addr, err
		}
	}

	artifact, err := req.Artifacts.Require(req.ContractName)
	if errors.Is(err, deployment.ErrArtifactNotFound) {
		return common.Address{}, fmt.Errorf("%s on %s: %w", typ, chain, deployment.ErrNotDeployed)
	}
	if err != nil {
		return common.Address{}, err
	}

	return artifact.Deployed(chain.ChainID())
}

func rpcConnect(lggr logger.Logger, providerURL string, confirmTimeout time.Duration) ConnectFunc {
	return func(ctx context.Context, signer provider.SignerGenerator) (evm.Chain, error) {
		rpcs, err := evm.ParseRPCs(providerURL)
		if err != nil {
			return evm.Chain{}, err
		}

		return provider.NewRPCChainProvider(provider.RPCChainProviderConfig{
			DeployerTransactorGen: signer,
			RPCs:                  rpcs,
			ConfirmFunctor:        provider.ConfirmFuncGeth(confirmTimeout),
			Logger:                lggr,
		}).Initialize(ctx)
	}
}
