package migrations

import "github.com/Masterminds/semver/v3"

// Default returns the registry of the PartyBeaver migrations for the contract name and
// version from the configuration.
func Default(contractName string, version *semver.Version) *Registry {
	r := NewRegistry()
	r.Add(DeployContractsKey, DeployContracts{ContractName: contractName, Version: version})

	return r
}
