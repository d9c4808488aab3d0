package migrations

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/fluuu/partybeaver-deployments/contracts/partybeaver"
	"github.com/fluuu/partybeaver-deployments/operations"
)

type DeployProxySeqInput struct {
	ChainSelector uint64 `json:"chainSelector"`
	ContractName  string `json:"contractName"`
	Version       string `json:"version"`
}

type DeployProxySeqOutput struct {
	Implementation DeployOutput `json:"implementation"`
	Proxy          DeployOutput `json:"proxy"`
	Owner          string       `json:"owner"`
}

// DeployProxySeq deploys the implementation, deploys the proxy with initialize() as its
// constructor call and reads the owner back through the proxy.
var DeployProxySeq = operations.NewSequence(
	"deploy-proxy-seq",
	semver.MustParse("1.0.0"),
	"Deploys PartyBeaver behind an ERC1967 proxy",
	func(b operations.Bundle, deps Deps, in DeployProxySeqInput) (DeployProxySeqOutput, error) {
		implReport, err := operations.ExecuteOperation(b, DeployImplementationOp, deps,
			DeployImplementationInput{
				ChainSelector: in.ChainSelector,
				ContractName:  in.ContractName,
				Version:       in.Version,
			},
			executeOptions[DeployImplementationInput](deps)...,
		)
		if err != nil {
			return DeployProxySeqOutput{}, err
		}

		initData, err := partybeaver.InitializeCalldata()
		if err != nil {
			return DeployProxySeqOutput{}, fmt.Errorf("failed to pack initialize: %w", err)
		}

		proxyReport, err := operations.ExecuteOperation(b, DeployProxyOp, deps,
			DeployProxyInput{
				ChainSelector:  in.ChainSelector,
				Implementation: implReport.Output.Address,
				InitData:       initData,
			},
			executeOptions[DeployProxyInput](deps)...,
		)
		if err != nil {
			return DeployProxySeqOutput{}, err
		}

		ownerReport, err := operations.ExecuteOperation(b, ReadOwnerOp, deps,
			ReadOwnerInput{ChainSelector: in.ChainSelector, Proxy: proxyReport.Output.Address},
			executeOptions[ReadOwnerInput](deps)...,
		)
		if err != nil {
			return DeployProxySeqOutput{}, err
		}

		return DeployProxySeqOutput{
			Implementation: implReport.Output,
			Proxy:          proxyReport.Output,
			Owner:          ownerReport.Output.Owner,
		}, nil
	},
)

type UpgradeSeqInput struct {
	ChainSelector uint64 `json:"chainSelector"`
	ContractName  string `json:"contractName"`
	Version       string `json:"version"`
	Proxy         string `json:"proxy"`
}

type UpgradeSeqOutput struct {
	Implementation DeployOutput `json:"implementation"`
	UpgradeTxHash  string       `json:"upgradeTxHash"`
}

// UpgradeSeq deploys a new implementation and points the proxy at it.
var UpgradeSeq = operations.NewSequence(
	"upgrade-proxy-seq",
	semver.MustParse("1.0.0"),
	"Deploys a new PartyBeaver implementation and upgrades the proxy",
	func(b operations.Bundle, deps Deps, in UpgradeSeqInput) (UpgradeSeqOutput, error) {
		implReport, err := operations.ExecuteOperation(b, DeployImplementationOp, deps,
			DeployImplementationInput{
				ChainSelector: in.ChainSelector,
				ContractName:  in.ContractName,
				Version:       in.Version,
			},
			executeOptions[DeployImplementationInput](deps)...,
		)
		if err != nil {
			return UpgradeSeqOutput{}, err
		}

		upgradeReport, err := operations.ExecuteOperation(b, UpgradeProxyOp, deps,
			UpgradeProxyInput{
				ChainSelector:  in.ChainSelector,
				Proxy:          in.Proxy,
				Implementation: implReport.Output.Address,
			},
			executeOptions[UpgradeProxyInput](deps)...,
		)
		if err != nil {
			return UpgradeSeqOutput{}, err
		}

		return UpgradeSeqOutput{
			Implementation: implReport.Output,
			UpgradeTxHash:  upgradeReport.Output.TxHash,
		}, nil
	},
)
