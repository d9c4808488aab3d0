package deployment

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const partyBeaver ContractType = "PartyBeaverUpgradeable"

var (
	testSelector = chainsel.GETH_TESTNET.Selector
	v100         = *semver.MustParse("1.0.0")
	v110         = *semver.MustParse("1.1.0")
	addr1        = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	addr2        = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	addr3        = "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"
)

func TestTypeAndVersion(t *testing.T) {
	t.Parallel()

	tv, err := TypeAndVersionFromString("PartyBeaverUpgradeable 1.0.0 proxy")
	require.NoError(t, err)
	assert.Equal(t, NewTypeAndVersion(partyBeaver, v100, LabelProxy), tv)
	assert.Equal(t, "PartyBeaverUpgradeable 1.0.0 proxy", tv.String())
	assert.True(t, tv.Equal(NewTypeAndVersion(partyBeaver, v100, LabelProxy)))
	assert.False(t, tv.Equal(NewTypeAndVersion(partyBeaver, v110, LabelProxy)))
	assert.False(t, tv.Equal(NewTypeAndVersion(partyBeaver, v100)))
	assert.Equal(t, "PartyBeaverUpgradeable 1.0.0", NewTypeAndVersion(partyBeaver, v100).String())

	_, err = TypeAndVersionFromString("PartyBeaverUpgradeable")
	require.ErrorContains(t, err, "invalid type and version string")

	_, err = TypeAndVersionFromString("PartyBeaverUpgradeable notaversion")
	require.Error(t, err)
}

func TestAddressBook_Save(t *testing.T) {
	t.Parallel()

	tv := NewTypeAndVersion(partyBeaver, v100, LabelProxy)

	tests := []struct {
		name     string
		selector uint64
		address  string
		tv       TypeAndVersion
		wantErr  error
		wantMsg  string
	}{
		{name: "lower case is stored checksummed", selector: testSelector, address: addr1, tv: tv},
		{name: "unknown selector", selector: 42, address: addr1, tv: tv, wantErr: ErrInvalidChainSelector},
		{
			name:     "non evm selector",
			selector: chainsel.SOLANA_MAINNET.Selector,
			address:  addr1,
			tv:       tv,
			wantErr:  ErrInvalidChainSelector,
		},
		{name: "malformed address", selector: testSelector, address: "0x1234", tv: tv, wantErr: ErrInvalidAddress},
		{name: "zero address", selector: testSelector, address: "0x0", tv: tv, wantErr: ErrInvalidAddress},
		{name: "empty type", selector: testSelector, address: addr1, tv: TypeAndVersion{Version: v100}, wantMsg: "type cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ab := NewMemoryAddressBook()
			err := ab.Save(tt.selector, tt.address, tt.tv)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantMsg != "":
				require.ErrorContains(t, err, tt.wantMsg)
				return
			}
			require.NoError(t, err)

			got, err := ab.AddressesForChain(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, map[string]TypeAndVersion{common.HexToAddress(tt.address).Hex(): tt.tv}, got)
		})
	}
}

func TestAddressBook_Duplicate(t *testing.T) {
	t.Parallel()

	ab := NewMemoryAddressBook()
	require.NoError(t, ab.Save(testSelector, addr1, NewTypeAndVersion(partyBeaver, v100)))

	// the same address in a different case is still a duplicate
	err := ab.Save(testSelector, common.HexToAddress(addr1).Hex(), NewTypeAndVersion(partyBeaver, v110))
	require.ErrorContains(t, err, "already exists")
}

func TestAddressBook_AddressesForChain(t *testing.T) {
	t.Parallel()

	ab := NewMemoryAddressBook()

	_, err := ab.AddressesForChain(42)
	require.ErrorIs(t, err, ErrInvalidChainSelector)

	_, err = ab.AddressesForChain(testSelector)
	require.ErrorIs(t, err, ErrChainNotFound)
}

func TestAddressBook_MergeAndRemove(t *testing.T) {
	t.Parallel()

	ab := NewMemoryAddressBook()
	require.NoError(t, ab.Save(testSelector, addr1, NewTypeAndVersion(partyBeaver, v100, LabelImplementation)))

	other := NewMemoryAddressBook()
	require.NoError(t, other.Save(testSelector, addr2, NewTypeAndVersion(partyBeaver, v100, LabelProxy)))
	require.NoError(t, other.Save(chainsel.ETHEREUM_MAINNET.Selector, addr3, NewTypeAndVersion(partyBeaver, v100)))

	require.NoError(t, ab.Merge(other))

	all, err := ab.Addresses()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, all[testSelector], 2)

	// merging again collides
	require.ErrorContains(t, ab.Merge(other), "already exists")

	missing := NewMemoryAddressBook()
	require.NoError(t, missing.Save(testSelector, addr3, NewTypeAndVersion(partyBeaver, v100)))
	require.ErrorContains(t, ab.Remove(missing), "does not contain address")

	require.NoError(t, ab.Remove(other))
	all, err = ab.Addresses()
	require.NoError(t, err)
	assert.Equal(t, map[uint64]map[string]TypeAndVersion{
		testSelector: {common.HexToAddress(addr1).Hex(): NewTypeAndVersion(partyBeaver, v100, LabelImplementation)},
	}, all)
}

func TestNewMemoryAddressBookFromMap(t *testing.T) {
	t.Parallel()

	ab, err := NewMemoryAddressBookFromMap(AddressesByChain{
		testSelector: {addr1: NewTypeAndVersion(partyBeaver, v100)},
	})
	require.NoError(t, err)

	got, err := ab.AddressesForChain(testSelector)
	require.NoError(t, err)
	assert.Contains(t, got, common.HexToAddress(addr1).Hex())

	_, err = NewMemoryAddressBookFromMap(AddressesByChain{42: {addr1: NewTypeAndVersion(partyBeaver, v100)}})
	require.ErrorIs(t, err, ErrInvalidChainSelector)
}

func TestResolveDeployed(t *testing.T) {
	t.Parallel()

	ab := NewMemoryAddressBook()
	require.NoError(t, ab.Save(testSelector, addr1, NewTypeAndVersion(partyBeaver, v100, LabelImplementation)))
	require.NoError(t, ab.Save(testSelector, addr2, NewTypeAndVersion(partyBeaver, v100, LabelProxy)))

	got, err := ResolveDeployed(ab, testSelector, partyBeaver, LabelProxy)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(addr2), got)

	_, err = ResolveDeployed(ab, testSelector, partyBeaver, "")
	require.ErrorContains(t, err, "found 2 records")

	_, err = ResolveDeployed(ab, testSelector, "Other", LabelProxy)
	require.ErrorIs(t, err, ErrNotDeployed)

	_, err = ResolveDeployed(NewMemoryAddressBook(), testSelector, partyBeaver, LabelProxy)
	require.ErrorIs(t, err, ErrNotDeployed)

	_, err = ResolveDeployed(ab, 42, partyBeaver, LabelProxy)
	require.ErrorIs(t, err, ErrInvalidChainSelector)
}

func TestLatestDeployed(t *testing.T) {
	t.Parallel()

	ab := NewMemoryAddressBook()
	require.NoError(t, ab.Save(testSelector, addr1, NewTypeAndVersion(partyBeaver, v110, LabelImplementation)))
	require.NoError(t, ab.Save(testSelector, addr2, NewTypeAndVersion(partyBeaver, v100, LabelImplementation)))

	addr, tv, err := LatestDeployed(ab, testSelector, partyBeaver, LabelImplementation)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(addr1), addr)
	assert.Equal(t, "1.1.0", tv.Version.String())

	_, _, err = LatestDeployed(ab, testSelector, partyBeaver, LabelProxy)
	require.ErrorIs(t, err, ErrNotDeployed)
}
