// Package proxy deploys and inspects ERC-1967 proxies.
package proxy

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractName is the artifact name of the proxy contract.
const ContractName = "ERC1967Proxy"

// ImplementationSlot is the ERC-1967 storage slot holding the implementation address,
// bytes32(uint256(keccak256("eip1967.proxy.implementation")) - 1).
var ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

//go:embed ERC1967Proxy.abi.json
var abiJSON string

// RawABI returns the ABI as JSON.
func RawABI() string {
	return abiJSON
}

// ABI returns the ERC1967Proxy ABI.
func ABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid ERC1967Proxy abi: %v", err))
	}

	return parsed
}

// StorageReader reads contract storage.
type StorageReader interface {
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// DeployERC1967Proxy deploys a proxy pointing at implementation. The proxy constructor
// delegatecalls initData, so the initializer runs once, inside the deployment transaction.
func DeployERC1967Proxy(
	opts *bind.TransactOpts,
	backend bind.ContractBackend,
	parsed abi.ABI,
	bin []byte,
	implementation common.Address,
	initData []byte,
) (common.Address, *types.Transaction, error) {
	if len(bin) == 0 {
		return common.Address{}, nil, errors.New("proxy bytecode is empty")
	}
	if implementation == (common.Address{}) {
		return common.Address{}, nil, errors.New("implementation address is zero")
	}
	if initData == nil {
		initData = []byte{}
	}

	addr, tx, _, err := bind.DeployContract(opts, parsed, bin, backend, implementation, initData)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to deploy %s: %w", ContractName, err)
	}

	return addr, tx, nil
}

// ImplementationAddress reads the implementation address from the proxy's ERC-1967 slot.
func ImplementationAddress(ctx context.Context, client StorageReader, proxy common.Address) (common.Address, error) {
	raw, err := client.StorageAt(ctx, proxy, ImplementationSlot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read implementation slot of %s: %w", proxy.Hex(), err)
	}

	impl := common.BytesToAddress(raw)
	if impl == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s is not an ERC-1967 proxy", proxy.Hex())
	}

	return impl, nil
}
