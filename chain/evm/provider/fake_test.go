package provider

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/internal/secret"
)

// testMnemonic is the well known development mnemonic used by local EVM nodes.
const testMnemonic = "test test test test test test test test test test test junk"

// testMnemonicAddresses are the first accounts derived from testMnemonic.
var testMnemonicAddresses = []string{
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
}

func newTestWallet(t *testing.T, numAddresses uint) *HDWallet {
	t.Helper()

	w, err := NewHDWallet(secret.New(testMnemonic), DefaultBaseDerivationPath, numAddresses)
	require.NoError(t, err)

	return w
}

// newFakeRPCServer returns a fake RPC server which answers eth_chainId with chainID and every
// other method with 0x1.
//
// When the test is done, the server is closed automatically.
func newFakeRPCServer(t *testing.T, chainID string) *httptest.Server {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		result := "0x1"
		if req.Method == "eth_chainId" {
			result = chainID
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

// alwaysFailingGenerator is a SignerGenerator that always fails with an error.
type alwaysFailingGenerator struct{}

func (alwaysFailingGenerator) Generate(*big.Int) (*bind.TransactOpts, error) {
	return nil, assert.AnError
}
