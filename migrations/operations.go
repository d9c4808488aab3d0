package migrations

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/contracts/partybeaver"
	"github.com/fluuu/partybeaver-deployments/contracts/proxy"
	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/operations"
)

// Deps are the dependencies of every deployment operation.
type Deps struct {
	Chain     evm.Chain
	Artifacts deployment.ArtifactsDir
	// Force marks the reports of the run as forced and ignores previous successful reports.
	Force bool
}

func executeOptions[IN any](deps Deps) []operations.ExecuteOption[IN, Deps] {
	if deps.Force {
		return []operations.ExecuteOption[IN, Deps]{operations.WithForceExecute[IN, Deps]()}
	}

	return nil
}

// DeployOutput is the result of a contract deployment.
type DeployOutput struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash"`
}

type DeployImplementationInput struct {
	ChainSelector uint64 `json:"chainSelector"`
	ContractName  string `json:"contractName"`
	// Version keeps the deployments of different implementation versions apart.
	Version string `json:"version"`
}

// DeployImplementationOp deploys the implementation contract from its build artifact. The
// implementation is left uninitialized.
var DeployImplementationOp = operations.NewOperation(
	"deploy-implementation",
	semver.MustParse("1.0.0"),
	"Deploys the PartyBeaver implementation contract",
	func(b operations.Bundle, deps Deps, in DeployImplementationInput) (DeployOutput, error) {
		artifact, err := deps.Artifacts.Require(in.ContractName)
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(err)
		}
		parsed, err := artifact.ParsedABI()
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(err)
		}
		bin, err := artifact.Bin()
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(err)
		}

		addr, tx, _, err := partybeaver.DeployPartyBeaver(deps.Chain.DeployerKey, deps.Chain.Client, parsed, bin)
		if err != nil {
			return DeployOutput{}, err
		}
		if _, err = deps.Chain.Confirm(tx); err != nil {
			return DeployOutput{}, fmt.Errorf("failed to confirm %s deployment: %w", in.ContractName, err)
		}

		b.Logger.Infow("Deployed implementation", "contract", in.ContractName, "version", in.Version,
			"address", addr.Hex(), "tx", tx.Hash().Hex(), "chain", deps.Chain.String())

		return DeployOutput{Address: addr.Hex(), TxHash: tx.Hash().Hex()}, nil
	},
)

type DeployProxyInput struct {
	ChainSelector  uint64        `json:"chainSelector"`
	Implementation string        `json:"implementation"`
	InitData       hexutil.Bytes `json:"initData"`
}

// DeployProxyOp deploys an ERC-1967 proxy in front of the implementation. The proxy
// constructor delegatecalls InitData, so initialize() runs once, in this transaction.
var DeployProxyOp = operations.NewOperation(
	"deploy-proxy",
	semver.MustParse("1.0.0"),
	"Deploys the ERC1967 proxy and initializes it",
	func(b operations.Bundle, deps Deps, in DeployProxyInput) (DeployOutput, error) {
		if !common.IsHexAddress(in.Implementation) {
			return DeployOutput{}, operations.NewUnrecoverableError(
				fmt.Errorf("implementation %q: %w", in.Implementation, deployment.ErrInvalidAddress))
		}
		impl := common.HexToAddress(in.Implementation)

		artifact, err := deps.Artifacts.Require(proxy.ContractName)
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(err)
		}
		parsed, err := artifact.ParsedABI()
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(err)
		}
		bin, err := artifact.Bin()
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(err)
		}

		addr, tx, err := proxy.DeployERC1967Proxy(deps.Chain.DeployerKey, deps.Chain.Client, parsed, bin, impl, in.InitData)
		if err != nil {
			return DeployOutput{}, err
		}
		if _, err = deps.Chain.Confirm(tx); err != nil {
			return DeployOutput{}, fmt.Errorf("failed to confirm proxy deployment: %w", err)
		}

		got, err := proxy.ImplementationAddress(b.GetContext(), deps.Chain.Client, addr)
		if err != nil {
			return DeployOutput{}, err
		}
		if got != impl {
			return DeployOutput{}, fmt.Errorf("proxy %s points at %s, expected %s", addr.Hex(), got.Hex(), impl.Hex())
		}

		b.Logger.Infow("Deployed proxy", "address", addr.Hex(), "implementation", impl.Hex(),
			"tx", tx.Hash().Hex(), "chain", deps.Chain.String())

		return DeployOutput{Address: addr.Hex(), TxHash: tx.Hash().Hex()}, nil
	},
)

type ReadOwnerInput struct {
	ChainSelector uint64 `json:"chainSelector"`
	Proxy         string `json:"proxy"`
}

type ReadOwnerOutput struct {
	Owner string `json:"owner"`
}

// ReadOwnerOp reads owner() through the proxy, calling from the deployer account.
var ReadOwnerOp = operations.NewOperation(
	"read-owner",
	semver.MustParse("1.0.0"),
	"Reads the owner of the proxied contract",
	func(b operations.Bundle, deps Deps, in ReadOwnerInput) (ReadOwnerOutput, error) {
		pb := partybeaver.NewPartyBeaver(common.HexToAddress(in.Proxy), deps.Chain.Client)

		owner, err := pb.Owner(&bind.CallOpts{Context: b.GetContext(), From: deps.Chain.DeployerKey.From})
		if err != nil {
			return ReadOwnerOutput{}, err
		}

		return ReadOwnerOutput{Owner: owner.Hex()}, nil
	},
)

type UpgradeProxyInput struct {
	ChainSelector  uint64 `json:"chainSelector"`
	Proxy          string `json:"proxy"`
	Implementation string `json:"implementation"`
}

type UpgradeProxyOutput struct {
	TxHash string `json:"txHash"`
}

// UpgradeProxyOp points the proxy at a new implementation with upgradeToAndCall and checks
// the ERC-1967 slot afterwards.
var UpgradeProxyOp = operations.NewOperation(
	"upgrade-proxy",
	semver.MustParse("1.0.0"),
	"Upgrades the proxy to a new implementation",
	func(b operations.Bundle, deps Deps, in UpgradeProxyInput) (UpgradeProxyOutput, error) {
		proxyAddr := common.HexToAddress(in.Proxy)
		impl := common.HexToAddress(in.Implementation)

		pb := partybeaver.NewPartyBeaver(proxyAddr, deps.Chain.Client)
		tx, err := pb.UpgradeToAndCall(deps.Chain.DeployerKey, impl, nil)
		if err != nil {
			return UpgradeProxyOutput{}, fmt.Errorf("failed to send upgradeToAndCall: %w", err)
		}
		if _, err = deps.Chain.Confirm(tx); err != nil {
			return UpgradeProxyOutput{}, fmt.Errorf("failed to confirm upgrade: %w", err)
		}

		got, err := proxy.ImplementationAddress(b.GetContext(), deps.Chain.Client, proxyAddr)
		if err != nil {
			return UpgradeProxyOutput{}, err
		}
		if got != impl {
			return UpgradeProxyOutput{}, fmt.Errorf("proxy %s points at %s after upgrade, expected %s",
				proxyAddr.Hex(), got.Hex(), impl.Hex())
		}

		b.Logger.Infow("Upgraded proxy", "proxy", proxyAddr.Hex(), "implementation", impl.Hex(),
			"tx", tx.Hash().Hex())

		return UpgradeProxyOutput{TxHash: tx.Hash().Hex()}, nil
	},
)
