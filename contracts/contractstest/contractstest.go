// Package contractstest provides build artifacts with minimal bytecode for tests that run
// against the simulated backend.
package contractstest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/contracts/partybeaver"
	"github.com/fluuu/partybeaver-deployments/contracts/proxy"
	"github.com/fluuu/partybeaver-deployments/deployment"
)

// ImplementationBytecode deploys a minimal initializable contract:
//   - initialize() stores the caller as owner in slot 0 and reverts when an owner is set
//   - owner() returns slot 0
//   - every other call returns the caller as a 32 byte word, so transactions succeed
const ImplementationBytecode = "0x6040600c60003960406000f3" + implementationRuntime

// ProxyBytecode deploys an ERC-1967 style proxy with the (address _logic, bytes _data)
// constructor. The constructor stores _logic in the implementation slot and delegatecalls
// _data to it when _data is not empty, reverting when that call fails.
// upgradeToAndCall(address,bytes) overwrites the slot with its first argument and ignores the
// data; every other call is delegated to the implementation.
const ProxyBytecode = "0x" + proxyConstructor + proxyRuntime

// UpgradeToAndCallSelector is the selector ProxyBytecode dispatches on.
const UpgradeToAndCallSelector = "4f1ef286"

const (
	ownerSelector      = "8da5cb5b"
	initializeSelector = "8129fc1c"
	erc1967Slot        = "360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc"
)

// 0x40 bytes, jump destinations at 0x22 (owner), 0x2e (initialize) and 0x3a (first initialize).
const implementationRuntime = "60003560e01c" + // selector
	"80" + "63" + ownerSelector + "14602257" + // owner
	"63" + initializeSelector + "14602e57" + // initialize
	"3360005260206000f3" + // return CALLER
	"5b60005460005260206000f3" + // return SLOAD(0)
	"5b60005415603a57600080fd" + // revert when SLOAD(0) != 0
	"5b3360005500" // SSTORE(0, CALLER)

// 0x68 bytes. The runtime starts at 0x68 and the constructor arguments at 0xe1:
// _logic at 0xe1, the length of _data at 0x121 and _data itself at 0x141.
const proxyConstructor = "60206100e1600039" + // mem[0] = _logic
	"6000517f" + erc1967Slot + "55" + // SSTORE(slot, _logic)
	"6020610121602039" + // mem[0x20] = len(_data)
	"60205115605a57" + // skip the call when _data is empty
	"6020516101416040396000600060205160406000515af4" + // DELEGATECALL(_logic, _data)
	"605a57600080fd" + // revert when it failed
	"5b607961006860003960796000f3" // return the runtime

// 0x79 bytes, jump destinations at 0x4d (delegated call succeeded) and 0x52 (upgrade).
const proxyRuntime = "60003560e01c63" + UpgradeToAndCallSelector + "14605257" +
	"366000600037" + // copy calldata
	"600060003660007f" + erc1967Slot + "545af4" + // DELEGATECALL(SLOAD(slot), calldata)
	"3d600060003e" + // copy return data
	"604d573d6000fd" + // revert with it on failure
	"5b3d6000f3" + // return it on success
	"5b6004357f" + erc1967Slot + "5500" // SSTORE(slot, CALLDATALOAD(4))

// RevertBytecode deploys a contract that reverts every call without data.
const RevertBytecode = "0x6005600c60003960056000f3" + "60006000fd"

// WriteArtifacts writes PartyBeaverUpgradeable.json and ERC1967Proxy.json to dir and returns
// it as an ArtifactsDir.
func WriteArtifacts(t *testing.T, dir string) deployment.ArtifactsDir {
	t.Helper()

	WriteArtifact(t, dir, deployment.Artifact{
		ContractName: partybeaver.ContractName,
		ABI:          json.RawMessage(partybeaver.RawABI()),
		Bytecode:     ImplementationBytecode,
	})
	WriteArtifact(t, dir, deployment.Artifact{
		ContractName: proxy.ContractName,
		ABI:          json.RawMessage(proxy.RawABI()),
		Bytecode:     ProxyBytecode,
	})

	return deployment.ArtifactsDir(dir)
}

// WriteArtifact writes a single artifact to dir.
func WriteArtifact(t *testing.T, dir string, a deployment.Artifact) {
	t.Helper()

	b, err := json.MarshalIndent(a, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, a.ContractName+".json"), b, 0o600))
}
