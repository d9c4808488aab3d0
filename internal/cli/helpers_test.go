package cli

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/chain/evm/provider"
	"github.com/fluuu/partybeaver-deployments/config"
	"github.com/fluuu/partybeaver-deployments/contracts/contractstest"
	"github.com/fluuu/partybeaver-deployments/internal/secret"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

const testMnemonic = "test test test test test test test test test test test junk"

// testMnemonicAddresses are the first accounts of testMnemonic.
var testMnemonicAddresses = []string{
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
}

type testHarness struct {
	root     string
	mnemonic string

	mu    sync.Mutex
	chain *evm.Chain
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	root := t.TempDir()
	contractstest.WriteArtifacts(t, filepath.Join(root, "build", "contracts"))

	return &testHarness{root: root, mnemonic: testMnemonic}
}

// loadConfig returns a fresh config on every call, the way config.Load does.
func (h *testHarness) loadConfig(_, _ string) (*config.Config, error) {
	return &config.Config{
		Wallet: config.WalletConfig{
			Mnemonic:       secret.New(h.mnemonic),
			ProviderURL:    "http://127.0.0.1:8545",
			DerivationPath: config.DefaultDerivationPath,
			NumAddresses:   2,
		},
		Contract: config.ContractConfig{
			Name:    config.DefaultContractName,
			Version: "1.0.0",
			BaseURI: config.DefaultBaseURI,
		},
		Artifacts:   config.ArtifactsConfig{Dir: filepath.Join(h.root, "build", "contracts")},
		Deployments: config.DeploymentsConfig{Dir: filepath.Join(h.root, "deployments")},
		Tx:          config.TxConfig{ConfirmTimeout: time.Minute},
		Log:         config.LogConfig{Level: "debug"},
	}, nil
}

// connect starts a simulated chain on first use and reuses it for later commands.
func (h *testHarness) connect(t *testing.T) ConnectFunc {
	t.Helper()

	return func(
		ctx context.Context, _ logger.Logger, _ *config.Config,
		deployer provider.SignerGenerator, _ []provider.SignerGenerator,
	) (evm.Chain, error) {
		h.mu.Lock()
		defer h.mu.Unlock()

		if h.chain == nil {
			c, err := provider.NewSimChainProvider(t, provider.SimChainProviderConfig{
				DeployerTransactorGen: deployer,
			}).Initialize(t.Context())
			if err != nil {
				return evm.Chain{}, err
			}
			h.chain = &c
		}

		key, err := deployer.Generate(new(big.Int).SetUint64(h.chain.ChainID()))
		if err != nil {
			return evm.Chain{}, err
		}
		c := *h.chain
		c.DeployerKey = key

		return c, nil
	}
}

func (h *testHarness) deps(t *testing.T) Deps {
	t.Helper()

	return Deps{
		ConfigLoader: h.loadConfig,
		Connect:      h.connect(t),
	}
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()

	cmd := NewCommand(Config{Logger: logger.Test(t), Deps: deps})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func requireExecute(t *testing.T, deps Deps, args ...string) string {
	t.Helper()

	out, err := execute(t, deps, args...)
	require.NoError(t, err)

	return out
}
