package migrations

import (
	"errors"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"

	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/operations"
)

const DeployContractsKey = "0002_deploy_contracts"

// DeployContracts deploys the contract behind a new proxy, initializes it through the proxy
// constructor and reports owner and proxy address.
type DeployContracts struct {
	ContractName string
	Version      *semver.Version
}

var _ Migration = DeployContracts{}

func (m DeployContracts) Apply(e *deployment.Environment, opts ApplyOptions) (Output, error) {
	sel := e.Chain.Selector
	typ := deployment.ContractType(m.ContractName)

	superseded, err := existingDeployment(e.ExistingAddresses, sel, typ)
	if err != nil {
		return Output{}, err
	}
	if superseded != nil {
		if !opts.Force {
			return Output{}, fmt.Errorf("%s on %s: %w", typ, e.Chain, ErrAlreadyDeployed)
		}
		e.Logger.Warnw("Redeploying contract, the existing proxy and implementation records are replaced",
			"contract", typ, "chain", e.Chain.String())
	}

	report, err := operations.ExecuteSequence(e.OperationsBundle, DeployProxySeq,
		Deps{Chain: e.Chain, Artifacts: e.Artifacts, Force: opts.Force},
		DeployProxySeqInput{ChainSelector: sel, ContractName: m.ContractName, Version: m.Version.String()},
	)
	if err != nil {
		return Output{}, err
	}
	out := report.Output

	ab := deployment.NewMemoryAddressBook()
	if err = ab.Save(sel, out.Implementation.Address,
		deployment.NewTypeAndVersion(typ, *m.Version, deployment.LabelImplementation)); err != nil {
		return Output{}, err
	}
	if err = ab.Save(sel, out.Proxy.Address,
		deployment.NewTypeAndVersion(typ, *m.Version, deployment.LabelProxy)); err != nil {
		return Output{}, err
	}

	printDeployed(e.Out, out.Owner, out.Proxy.Address)

	return Output{AddressBook: ab, Superseded: superseded}, nil
}

// existingProxy returns the proxy record of typ as an address book, or nil when there is none.
func existingProxy(ab deployment.AddressBook, sel uint64, typ deployment.ContractType) (deployment.AddressBook, error) {
	addr, err := deployment.ResolveDeployed(ab, sel, typ, deployment.LabelProxy)
	if errors.Is(err, deployment.ErrNotDeployed) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	records, err := ab.AddressesForChain(sel)
	if err != nil {
		return nil, err
	}

	found := deployment.NewMemoryAddressBook()
	if err = found.Save(sel, addr.Hex(), records[addr.Hex()]); err != nil {
		return nil, err
	}

	return found, nil
}

// existingDeployment returns the proxy record of typ together with every implementation record
// of typ, or nil when there is no proxy.
func existingDeployment(ab deployment.AddressBook, sel uint64, typ deployment.ContractType) (deployment.AddressBook, error) {
	found, err := existingProxy(ab, sel, typ)
	if found == nil || err != nil {
		return found, err
	}

	records, err := ab.AddressesForChain(sel)
	if err != nil {
		return nil, err
	}
	for addr, tv := range records {
		if tv.Type != typ || !tv.Labels.Contains(deployment.LabelImplementation) {
			continue
		}
		if err = found.Save(sel, addr, tv); err != nil {
			return nil, err
		}
	}

	return found, nil
}

var (
	grey   = color.New(color.FgHiBlack)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
)

func printDeployed(w io.Writer, owner, proxyAddr string) {
	grey.Fprintf(w, "PartyBeaver contract owner: %s\n", owner)
	green.Fprintln(w, "PartyBeaver contract address:")
	yellow.Fprintln(w, proxyAddr)
}
