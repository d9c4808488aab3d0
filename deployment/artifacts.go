package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrArtifactNotFound is returned when no build artifact exists for a contract name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a Truffle build artifact, one JSON file per contract.
type Artifact struct {
	ContractName     string                       `json:"contractName"`
	ABI              json.RawMessage              `json:"abi"`
	Bytecode         string                       `json:"bytecode"`
	DeployedBytecode string                       `json:"deployedBytecode,omitempty"`
	Networks         map[string]NetworkDeployment `json:"networks,omitempty"`
}

// NetworkDeployment is the record Truffle keeps per network id after a migration.
type NetworkDeployment struct {
	Address         string `json:"address"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

// ParsedABI parses the artifact ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if len(a.ABI) == 0 {
		return abi.ABI{}, fmt.Errorf("artifact %s has no abi", a.ContractName)
	}

	parsed, err := abi.JSON(strings.NewReader(string(a.ABI)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse abi of %s: %w", a.ContractName, err)
	}

	return parsed, nil
}

// Bin returns the creation bytecode.
func (a *Artifact) Bin() ([]byte, error) {
	if a.Bytecode == "" || a.Bytecode == "0x" {
		return nil, fmt.Errorf("artifact %s has no bytecode", a.ContractName)
	}

	bin, err := hexutil.Decode(withHexPrefix(a.Bytecode))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytecode of %s: %w", a.ContractName, err)
	}

	return bin, nil
}

// Deployed returns the address recorded for chainID in the artifact networks section.
func (a *Artifact) Deployed(chainID uint64) (common.Address, error) {
	n, ok := a.Networks[strconv.FormatUint(chainID, 10)]
	if !ok || !common.IsHexAddress(n.Address) {
		return common.Address{}, fmt.Errorf("%s on network %d: %w", a.ContractName, chainID, ErrNotDeployed)
	}

	return common.HexToAddress(n.Address), nil
}

// ArtifactsDir is a directory of Truffle build artifacts.
type ArtifactsDir string

// Require loads the artifact of the named contract. A trailing ".sol" is ignored.
func (d ArtifactsDir) Require(name string) (*Artifact, error) {
	name = strings.TrimSuffix(name, ".sol")
	path := filepath.Join(string(d), name+".json")

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s in %s: %w", name, d, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var a Artifact
	if err = json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	if a.ContractName == "" {
		a.ContractName = name
	}

	return &a, nil
}

func withHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}

	return "0x" + s
}
