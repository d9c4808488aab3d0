package cli

import (
	"context"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/chain/evm/provider"
)

// wallet derives the configured accounts. The mnemonic is destroyed afterwards.
func (s *session) wallet(numAddresses uint) (*provider.HDWallet, error) {
	if err := s.cfg.RequireWallet(); err != nil {
		return nil, err
	}
	defer s.cfg.Wallet.Mnemonic.Destroy()

	return provider.NewHDWallet(s.cfg.Wallet.Mnemonic, s.cfg.Wallet.DerivationPath, numAddresses)
}

// connect derives the wallet and connects to the chain with the first account as deployer
// and the remaining accounts as users.
func (s *session) connect(ctx context.Context, deps Deps) (evm.Chain, error) {
	w, err := s.wallet(s.cfg.Wallet.NumAddresses)
	if err != nil {
		return evm.Chain{}, err
	}

	opt := provider.WithGasLimit(s.cfg.Tx.GasLimit)
	users := make([]provider.SignerGenerator, 0, len(w.Addresses())-1)
	for i := 1; i < len(w.Addresses()); i++ {
		users = append(users, provider.TransactorFromMnemonic(w, i, opt))
	}

	return deps.Connect(ctx, s.lggr, s.cfg, provider.TransactorFromMnemonic(w, 0, opt), users)
}

// closeChain closes the chain client when it holds connections.
func closeChain(c evm.Chain) {
	if closer, ok := c.Client.(interface{ Close() }); ok {
		closer.Close()
	}
}
