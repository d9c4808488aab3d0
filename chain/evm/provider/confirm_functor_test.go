package provider

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/require"
)

func Test_ConfirmFuncGeth_ConfirmFunc(t *testing.T) {
	t.Parallel()

	// Generate an admin transactor which will be prefunded with some ETH
	adminKey, err := crypto.GenerateKey()
	require.NoError(t, err, "failed to generate admin key")

	adminTransactor, err := bind.NewKeyedTransactorWithChainID(adminKey, simChainID)
	require.NoError(t, err)

	// Generate another user transactor which acts as a recipient
	userKey, err := crypto.GenerateKey()
	require.NoError(t, err, "failed to generate user key")

	userTransactor, err := bind.NewKeyedTransactorWithChainID(userKey, simChainID)
	require.NoError(t, err)

	// Prefund the admin account
	genesis := types.GenesisAlloc{
		adminTransactor.From: {Balance: prefundAmountWei},
	}

	tests := []struct {
		name    string
		giveTx  func(*testing.T, *SimClient) *types.Transaction
		wantErr string
	}{
		{
			name: "successful confirmation",
			giveTx: func(t *testing.T, client *SimClient) *types.Transaction {
				t.Helper()

				// Get the nonce
				nonce, err := client.PendingNonceAt(t.Context(), adminTransactor.From)
				require.NoError(t, err)

				gasPrice, err := client.SuggestGasPrice(t.Context())
				require.NoError(t, err)

				// Create a transaction to send tokens. This will be used to test the confirmation function.
				tx := types.NewTransaction(
					nonce, userTransactor.From, big.NewInt(10000000000000000), 21000, gasPrice, nil,
				)

				signedTx, err := types.SignTx(tx, types.NewCancunSigner(simChainID), adminKey)
				require.NoError(t, err, "failed to sign transaction")

				// Send the transaction
				err = client.SendTransaction(t.Context(), signedTx)
				require.NoError(t, err)

				client.Commit() // Commit the transaction to the simulated backend

				return signedTx
			},
		},
		{
			name: "failed with nil tx",
			giveTx: func(t *testing.T, client *SimClient) *types.Transaction {
				t.Helper()

				return nil
			},
			wantErr: "tx was nil",
		},
		{
			name: "failed with context deadline exceeded",
			giveTx: func(t *testing.T, client *SimClient) *types.Transaction {
				t.Helper()

				// Get the nonce
				nonce, err := client.PendingNonceAt(t.Context(), adminTransactor.From)
				require.NoError(t, err)

				gasPrice, err := client.SuggestGasPrice(t.Context())
				require.NoError(t, err)

				// Create a transaction to send tokens. This will be used to test the confirmation function.
				tx := types.NewTransaction(
					nonce, userTransactor.From, big.NewInt(10000000000000000), 21000, gasPrice, nil,
				)

				return tx
			},
			wantErr: "context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(50000000))
			backend.Commit()
			t.Cleanup(func() { _ = backend.Close() })

			client := NewSimClient(t, backend)

			// Generate the transaction to confirm
			tx := tt.giveTx(t, client)

			// Generate the confirm function
			functor := ConfirmFuncGeth(1*time.Second, WithTickInterval(50*time.Millisecond))
			confirmFunc, err := functor.Generate(
				t.Context(), chainsel.GETH_TESTNET.Selector, client, adminTransactor.From,
			)
			require.NoError(t, err)

			// Run the confirm function with the transaction
			receipt, err := confirmFunc(tx)

			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
			}
		})
	}
}

func Test_checkReceipt(t *testing.T) {
	t.Parallel()

	tx := types.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	selector := chainsel.GETH_TESTNET.Selector

	_, err := checkReceipt(t.Context(), &fakeCaller{}, common.Address{}, tx, nil, selector)
	require.ErrorContains(t, err, "receipt was nil")

	ok := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	got, err := checkReceipt(t.Context(), &fakeCaller{}, common.Address{}, tx, ok, selector)
	require.NoError(t, err)
	require.Same(t, ok, got)

	failed := &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(1)}
	got, err = checkReceipt(t.Context(), &fakeCaller{err: &jsonError{Message: "execution reverted", Data: packRevert(t, "Ownable: caller is not the owner")}}, common.Address{}, tx, failed, selector)
	require.ErrorContains(t, err, "reverted for selector")
	require.ErrorContains(t, err, "Ownable: caller is not the owner")
	require.Same(t, failed, got)

	_, err = checkReceipt(t.Context(), &fakeCaller{}, common.Address{}, tx, failed, selector)
	require.ErrorContains(t, err, "could not decode error reason")
}
