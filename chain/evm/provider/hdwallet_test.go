package provider

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/internal/secret"
)

func TestNewHDWallet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		giveMnemonic string
		givePath     string
		giveNum      uint
		wantAddrs    []string
		wantErr      error
		wantErrMsg   string
	}{
		{
			name:         "first account by default",
			giveMnemonic: testMnemonic,
			wantAddrs:    testMnemonicAddresses[:1],
		},
		{
			name:         "extra whitespace is normalized",
			giveMnemonic: "  test test test test test test\n test test test test test   junk ",
			giveNum:      3,
			wantAddrs:    testMnemonicAddresses,
		},
		{
			name:         "explicit base path with trailing slash",
			giveMnemonic: testMnemonic,
			givePath:     "m/44'/60'/0'/0/",
			giveNum:      2,
			wantAddrs:    testMnemonicAddresses[:2],
		},
		{
			name:         "bad checksum",
			giveMnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
			wantErr:      ErrInvalidMnemonic,
		},
		{
			name:         "empty mnemonic",
			giveMnemonic: "",
			wantErrMsg:   "failed to create wallet from mnemonic",
		},
		{
			name:         "invalid derivation path",
			giveMnemonic: testMnemonic,
			givePath:     "m/not/a/path",
			wantErrMsg:   "invalid derivation path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, err := NewHDWallet(secret.New(tt.giveMnemonic), tt.givePath, tt.giveNum)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantErrMsg != "":
				require.ErrorContains(t, err, tt.wantErrMsg)
				return
			}

			require.NoError(t, err)

			got := w.Addresses()
			require.Len(t, got, len(tt.wantAddrs))
			for i, want := range tt.wantAddrs {
				// wallet providers list addresses in lower case
				assert.Equal(t, want, mustChecksum(t, got[i]))
				assert.NotEqual(t, want, got[i])
			}
		})
	}
}

func TestHDWallet_PrivateKey(t *testing.T) {
	t.Parallel()

	w := newTestWallet(t, 1)

	key, err := w.PrivateKey(0)
	require.NoError(t, err)
	assert.Equal(t, "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		hex.EncodeToString(crypto.FromECDSA(key)))

	_, err = w.PrivateKey(1)
	require.ErrorContains(t, err, "account index 1 out of range, wallet has 1 accounts")

	_, err = w.Account(-1)
	require.Error(t, err)
}

func TestChecksumAddress(t *testing.T) {
	t.Parallel()

	got, err := ChecksumAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	assert.Equal(t, testMnemonicAddresses[0], got.Hex())

	_, err = ChecksumAddress("0x1234")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func mustChecksum(t *testing.T, addr string) string {
	t.Helper()

	a, err := ChecksumAddress(addr)
	require.NoError(t, err)

	return a.Hex()
}
