package provider

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fluuu/partybeaver-deployments/internal/memzero"
)

// SignerGenerator generates geth's *bind.TransactOpts instances. These are used to sign
// transactions sent through the contract bindings.
type SignerGenerator interface {
	Generate(chainID *big.Int) (*bind.TransactOpts, error)
}

var (
	_ SignerGenerator = (*transactorFromMnemonic)(nil)
	_ SignerGenerator = (*transactorFromRaw)(nil)
	_ SignerGenerator = (*transactorRandom)(nil)
)

// GeneratorOptions contains configuration options for a SignerGenerator.
type GeneratorOptions struct {
	gasLimit uint64
}

// GeneratorOption is a function that modifies GeneratorOptions.
type GeneratorOption func(*GeneratorOptions)

// WithGasLimit fixes the gas limit of generated transactors. Zero means estimate.
func WithGasLimit(gasLimit uint64) GeneratorOption {
	return func(opts *GeneratorOptions) {
		opts.gasLimit = gasLimit
	}
}

func applyOptions(opts []GeneratorOption) GeneratorOptions {
	o := GeneratorOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// TransactorFromMnemonic returns a generator which signs with the account at index of an
// HD wallet.
func TransactorFromMnemonic(wallet *HDWallet, index int, opts ...GeneratorOption) SignerGenerator {
	return &transactorFromMnemonic{
		wallet:   wallet,
		index:    index,
		gasLimit: applyOptions(opts).gasLimit,
	}
}

type transactorFromMnemonic struct {
	wallet   *HDWallet
	index    int
	gasLimit uint64
}

// Generate derives the private key for the account and returns the bind transactor options.
func (g *transactorFromMnemonic) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	privKey, err := g.wallet.PrivateKey(g.index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive private key for account %d: %w", g.index, err)
	}

	return newKeyedTransactor(privKey, chainID, g.gasLimit)
}

// TransactorFromRaw returns a generator which creates a transactor from a hex encoded private
// key, with or without the 0x prefix.
func TransactorFromRaw(privKey string, opts ...GeneratorOption) SignerGenerator {
	return &transactorFromRaw{
		privKey:  privKey,
		gasLimit: applyOptions(opts).gasLimit,
	}
}

type transactorFromRaw struct {
	privKey  string
	gasLimit uint64
}

// Generate parses the hex encoded private key and returns the bind transactor options.
func (g *transactorFromRaw) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	raw, err := hexutil.Decode(withHexPrefix(g.privKey))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	defer memzero.Zero(raw)

	privKey, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return newKeyedTransactor(privKey, chainID, g.gasLimit)
}

// TransactorRandom returns a generator for a random key. The key is created on the first call
// to Generate and reused afterwards.
func TransactorRandom() SignerGenerator {
	return &transactorRandom{}
}

type transactorRandom struct {
	privKey *ecdsa.PrivateKey
}

// Generate returns the bind transactor options for the random key.
func (g *transactorRandom) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	if g.privKey == nil {
		privKey, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate random private key: %w", err)
		}
		g.privKey = privKey
	}

	return newKeyedTransactor(g.privKey, chainID, 0)
}

func newKeyedTransactor(key *ecdsa.PrivateKey, chainID *big.Int, gasLimit uint64) (*bind.TransactOpts, error) {
	transactor, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}
	if gasLimit > 0 {
		transactor.GasLimit = gasLimit
	}

	return transactor, nil
}

func withHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s
	}

	return "0x" + s
}
