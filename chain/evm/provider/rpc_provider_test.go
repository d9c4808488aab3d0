package provider

import (
	"testing"
	"time"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

func TestRPCChainProvider_Initialize(t *testing.T) {
	t.Parallel()

	srv := newFakeRPCServer(t, "0x539")
	wallet := newTestWallet(t, 2)

	p := NewRPCChainProvider(RPCChainProviderConfig{
		DeployerTransactorGen: TransactorFromMnemonic(wallet, 0),
		UsersTransactorGen:    []SignerGenerator{TransactorFromMnemonic(wallet, 1)},
		RPCs:                  []evm.RPC{{Name: "fake", URL: srv.URL}},
		ConfirmFunctor:        ConfirmFuncGeth(time.Minute),
		Logger:                logger.Test(t),
	})

	got, err := p.Initialize(t.Context())
	require.NoError(t, err)

	assert.Equal(t, chainsel.GETH_TESTNET.Selector, got.Selector)
	assert.Equal(t, testMnemonicAddresses[0], got.DeployerKey.From.Hex())
	require.Len(t, got.Users, 1)
	assert.Equal(t, testMnemonicAddresses[1], got.Users[0].From.Hex())
	assert.NotNil(t, got.Confirm)
	assert.Equal(t, "EVM RPC Chain Provider", p.Name())

	// second call returns the cached chain
	again, err := p.Initialize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, got.Selector, again.Selector)
}

func TestRPCChainProvider_Initialize_Errors(t *testing.T) {
	t.Parallel()

	srv := newFakeRPCServer(t, "0x539")
	unknownChainSrv := newFakeRPCServer(t, "0xe8d4a50fff")

	tests := []struct {
		name    string
		config  RPCChainProviderConfig
		wantErr string
	}{
		{
			name: "missing deployer generator",
			config: RPCChainProviderConfig{
				RPCs:           []evm.RPC{{URL: srv.URL}},
				ConfirmFunctor: ConfirmFuncGeth(time.Minute),
			},
			wantErr: "deployer transactor generator is required",
		},
		{
			name: "missing confirm functor",
			config: RPCChainProviderConfig{
				DeployerTransactorGen: TransactorRandom(),
				RPCs:                  []evm.RPC{{URL: srv.URL}},
			},
			wantErr: "confirm functor is required",
		},
		{
			name: "missing rpcs",
			config: RPCChainProviderConfig{
				DeployerTransactorGen: TransactorRandom(),
				ConfirmFunctor:        ConfirmFuncGeth(time.Minute),
			},
			wantErr: "at least one RPC is required",
		},
		{
			name: "unknown chain id",
			config: RPCChainProviderConfig{
				DeployerTransactorGen: TransactorRandom(),
				RPCs:                  []evm.RPC{{URL: unknownChainSrv.URL}},
				ConfirmFunctor:        ConfirmFuncGeth(time.Minute),
			},
			wantErr: "no chain selector for evm chain id",
		},
		{
			name: "deployer generator fails",
			config: RPCChainProviderConfig{
				DeployerTransactorGen: alwaysFailingGenerator{},
				RPCs:                  []evm.RPC{{URL: srv.URL}},
				ConfirmFunctor:        ConfirmFuncGeth(time.Minute),
			},
			wantErr: "failed to generate deployer key",
		},
		{
			name: "user generator fails",
			config: RPCChainProviderConfig{
				DeployerTransactorGen: TransactorRandom(),
				UsersTransactorGen:    []SignerGenerator{alwaysFailingGenerator{}},
				RPCs:                  []evm.RPC{{URL: srv.URL}},
				ConfirmFunctor:        ConfirmFuncGeth(time.Minute),
			},
			wantErr: "failed to generate user transactor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.config.Logger = logger.Test(t)
			_, err := NewRPCChainProvider(tt.config).Initialize(t.Context())
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
