package migrations

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/operations"
)

// UpgradeKey is the key under which an upgrade to version is recorded.
func UpgradeKey(version *semver.Version) string {
	return "upgrade_" + version.String()
}

// UpgradeContracts deploys a new implementation and points the existing proxy at it. The
// proxy record is re-versioned to the new implementation version.
type UpgradeContracts struct {
	ContractName string
	Version      *semver.Version
}

var _ Migration = UpgradeContracts{}

func (m UpgradeContracts) Apply(e *deployment.Environment, opts ApplyOptions) (Output, error) {
	sel := e.Chain.Selector
	typ := deployment.ContractType(m.ContractName)

	superseded, err := existingProxy(e.ExistingAddresses, sel, typ)
	if err != nil {
		return Output{}, err
	}
	if superseded == nil {
		return Output{}, fmt.Errorf("%s proxy on %s: %w", typ, e.Chain, deployment.ErrNotDeployed)
	}
	// The proxy record carries the version of the implementation it points at.
	proxyAddr, current, err := deployment.LatestDeployed(superseded, sel, typ, deployment.LabelProxy)
	if err != nil {
		return Output{}, err
	}
	if !m.Version.GreaterThan(&current.Version) && !opts.Force {
		return Output{}, fmt.Errorf("%s %s, deployed %s: %w", typ, m.Version, current.Version.String(), ErrVersionNotNewer)
	}

	report, err := operations.ExecuteSequence(e.OperationsBundle, UpgradeSeq,
		Deps{Chain: e.Chain, Artifacts: e.Artifacts, Force: opts.Force},
		UpgradeSeqInput{
			ChainSelector: sel,
			ContractName:  m.ContractName,
			Version:       m.Version.String(),
			Proxy:         proxyAddr.Hex(),
		},
	)
	if err != nil {
		return Output{}, err
	}

	ab := deployment.NewMemoryAddressBook()
	if err = ab.Save(sel, report.Output.Implementation.Address,
		deployment.NewTypeAndVersion(typ, *m.Version, deployment.LabelImplementation)); err != nil {
		return Output{}, err
	}
	if err = ab.Save(sel, proxyAddr.Hex(),
		deployment.NewTypeAndVersion(typ, *m.Version, deployment.LabelProxy)); err != nil {
		return Output{}, err
	}

	green.Fprintf(e.Out, "PartyBeaver upgraded to %s, implementation:\n", m.Version)
	yellow.Fprintln(e.Out, report.Output.Implementation.Address)

	return Output{AddressBook: ab, Superseded: superseded}, nil
}
