package provider

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/fluuu/partybeaver-deployments/internal/memzero"
	"github.com/fluuu/partybeaver-deployments/internal/secret"
)

// DefaultBaseDerivationPath is the BIP-44 Ethereum account path. The account index is appended
// as the last component.
const DefaultBaseDerivationPath = "m/44'/60'/0'/0"

var (
	// ErrInvalidMnemonic is returned when the mnemonic fails BIP-39 validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	// ErrInvalidAddress is returned when an address cannot be normalized to checksum form.
	ErrInvalidAddress = errors.New("invalid address")
)

// HDWallet derives a fixed number of accounts from a BIP-39 mnemonic.
type HDWallet struct {
	wallet   *hdwallet.Wallet
	accounts []accounts.Account
}

// NewHDWallet validates the mnemonic, derives the seed and the first numAddresses accounts
// under basePath. The seed is zeroed before returning.
func NewHDWallet(mnemonic *secret.Secret, basePath string, numAddresses uint) (*HDWallet, error) {
	if numAddresses == 0 {
		numAddresses = 1
	}
	if basePath == "" {
		basePath = DefaultBaseDerivationPath
	}

	var w *hdwallet.Wallet
	err := mnemonic.Use(func(m []byte) error {
		phrase := strings.Join(strings.Fields(string(m)), " ")
		if !bip39.IsMnemonicValid(phrase) {
			return ErrInvalidMnemonic
		}

		seed, err := bip39.NewSeedWithErrorChecking(phrase, "")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
		}
		defer memzero.Zero(seed)

		w, err = hdwallet.NewFromSeed(seed)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet from mnemonic: %w", err)
	}

	hw := &HDWallet{wallet: w}
	for i := range numAddresses {
		path, err := hdwallet.ParseDerivationPath(fmt.Sprintf("%s/%d", strings.TrimSuffix(basePath, "/"), i))
		if err != nil {
			return nil, fmt.Errorf("invalid derivation path %q: %w", basePath, err)
		}

		account, err := w.Derive(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to derive account %d: %w", i, err)
		}
		hw.accounts = append(hw.accounts, account)
	}

	return hw, nil
}

// Addresses returns the derived addresses in lower case hex, the way wallet providers list
// them. Use ChecksumAddress to get the canonical form.
func (w *HDWallet) Addresses() []string {
	addrs := make([]string, 0, len(w.accounts))
	for _, a := range w.accounts {
		addrs = append(addrs, strings.ToLower(a.Address.Hex()))
	}

	return addrs
}

// Account returns the derived account at index.
func (w *HDWallet) Account(index int) (accounts.Account, error) {
	if index < 0 || index >= len(w.accounts) {
		return accounts.Account{}, fmt.Errorf("account index %d out of range, wallet has %d accounts", index, len(w.accounts))
	}

	return w.accounts[index], nil
}

// PrivateKey returns the private key of the derived account at index.
func (w *HDWallet) PrivateKey(index int) (*ecdsa.PrivateKey, error) {
	account, err := w.Account(index)
	if err != nil {
		return nil, err
	}

	return w.wallet.PrivateKey(account)
}

// ChecksumAddress validates a hex address and returns it in EIP-55 checksum form.
func ChecksumAddress(addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	return common.HexToAddress(addr), nil
}
