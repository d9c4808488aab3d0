// Package partybeaver binds the PartyBeaver upgradeable NFT contract.
package partybeaver

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractName is the artifact name of the implementation contract.
const ContractName = "PartyBeaverUpgradeable"

//go:embed PartyBeaverUpgradeable.abi.json
var abiJSON string

var parsedABI = mustParseABI(abiJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid PartyBeaver abi: %v", err))
	}

	return parsed
}

// RawABI returns the ABI as JSON.
func RawABI() string {
	return abiJSON
}

// ABI returns the parsed ABI of the functions and events used by the deployment scripts.
func ABI() abi.ABI {
	return parsedABI
}

// PartyBeaver is a binding to a deployed PartyBeaver contract, usually through its proxy.
type PartyBeaver struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewPartyBeaver binds the contract at address with the built in ABI.
func NewPartyBeaver(address common.Address, backend bind.ContractBackend) *PartyBeaver {
	return Bind(address, backend, parsedABI)
}

// Bind binds the contract at address with the given ABI, for example the one of a build
// artifact.
func Bind(address common.Address, backend bind.ContractBackend, parsed abi.ABI) *PartyBeaver {
	return &PartyBeaver{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// DeployPartyBeaver deploys the implementation contract. The implementation is not
// initialized; initialize() runs through the proxy.
func DeployPartyBeaver(
	opts *bind.TransactOpts, backend bind.ContractBackend, parsed abi.ABI, bin []byte,
) (common.Address, *types.Transaction, *PartyBeaver, error) {
	if len(bin) == 0 {
		return common.Address{}, nil, nil, errors.New("implementation bytecode is empty")
	}

	addr, tx, _, err := bind.DeployContract(opts, parsed, bin, backend)
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("failed to deploy %s: %w", ContractName, err)
	}

	return addr, tx, Bind(addr, backend, parsed), nil
}

func (p *PartyBeaver) Address() common.Address {
	return p.address
}

// Owner calls owner().
func (p *PartyBeaver) Owner(opts *bind.CallOpts) (common.Address, error) {
	var out []any
	if err := p.contract.Call(opts, &out, "owner"); err != nil {
		return common.Address{}, fmt.Errorf("failed to call owner: %w", err)
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// BaseURI calls baseURI().
func (p *PartyBeaver) BaseURI(opts *bind.CallOpts) (string, error) {
	var out []any
	if err := p.contract.Call(opts, &out, "baseURI"); err != nil {
		return "", fmt.Errorf("failed to call baseURI: %w", err)
	}

	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// ProxiableUUID calls proxiableUUID(). On a UUPS implementation it returns the ERC-1967
// implementation slot.
func (p *PartyBeaver) ProxiableUUID(opts *bind.CallOpts) ([32]byte, error) {
	var out []any
	if err := p.contract.Call(opts, &out, "proxiableUUID"); err != nil {
		return [32]byte{}, fmt.Errorf("failed to call proxiableUUID: %w", err)
	}

	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

// Initialize sends initialize(). Deployments run it once through the proxy constructor; a
// second call reverts.
func (p *PartyBeaver) Initialize(opts *bind.TransactOpts) (*types.Transaction, error) {
	return p.contract.Transact(opts, "initialize")
}

// SetBaseURI sends setBaseURI(uri).
func (p *PartyBeaver) SetBaseURI(opts *bind.TransactOpts, uri string) (*types.Transaction, error) {
	return p.contract.Transact(opts, "setBaseURI", uri)
}

// UpgradeToAndCall sends upgradeToAndCall(newImplementation, data).
func (p *PartyBeaver) UpgradeToAndCall(opts *bind.TransactOpts, newImplementation common.Address, data []byte) (*types.Transaction, error) {
	if data == nil {
		data = []byte{}
	}

	return p.contract.Transact(opts, "upgradeToAndCall", newImplementation, data)
}

// InitializeCalldata packs initialize(), the calldata the proxy constructor delegates to.
func InitializeCalldata() ([]byte, error) {
	return parsedABI.Pack("initialize")
}

// DecodedLog is a log decoded against the contract ABI.
type DecodedLog struct {
	Event           string         `json:"event"`
	Address         common.Address `json:"address"`
	Args            map[string]any `json:"args"`
	LogIndex        uint           `json:"logIndex"`
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     uint64         `json:"blockNumber"`
}

// DecodeLogs decodes the logs emitted by the contract. Logs of other contracts or of unknown
// events are skipped.
func (p *PartyBeaver) DecodeLogs(logs []*types.Log) ([]DecodedLog, error) {
	decoded := make([]DecodedLog, 0, len(logs))
	for _, l := range logs {
		if l == nil || l.Address != p.address || len(l.Topics) == 0 {
			continue
		}

		event, err := p.abi.EventByID(l.Topics[0])
		if err != nil {
			continue
		}

		args := map[string]any{}
		if len(l.Data) > 0 {
			if err = p.abi.UnpackIntoMap(args, event.Name, l.Data); err != nil {
				return nil, fmt.Errorf("failed to unpack %s log: %w", event.Name, err)
			}
		}

		var indexed abi.Arguments
		for _, in := range event.Inputs {
			if in.Indexed {
				indexed = append(indexed, in)
			}
		}
		if err = abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
			return nil, fmt.Errorf("failed to parse %s topics: %w", event.Name, err)
		}

		decoded = append(decoded, DecodedLog{
			Event:           event.Name,
			Address:         l.Address,
			Args:            args,
			LogIndex:        l.Index,
			TransactionHash: l.TxHash,
			BlockNumber:     l.BlockNumber,
		})
	}

	return decoded, nil
}
