package evm

import (
	"fmt"
	"math/big"
	"testing"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Metadata(t *testing.T) {
	t.Parallel()

	c := Chain{Selector: chainsel.ETHEREUM_MAINNET.Selector}

	assert.Equal(t, chainsel.ETHEREUM_MAINNET.Selector, c.ChainSelector())
	assert.Equal(t, uint64(1), c.ChainID())
	assert.Equal(t, chainsel.ETHEREUM_MAINNET.Name, c.Name())
	assert.Equal(t,
		fmt.Sprintf("%s (%d)", chainsel.ETHEREUM_MAINNET.Name, chainsel.ETHEREUM_MAINNET.Selector),
		c.String(),
	)

	unknown := Chain{Selector: 42}
	assert.Equal(t, "42", unknown.Name())
	assert.Equal(t, uint64(0), unknown.ChainID())
}

func TestSelectorFromChainID(t *testing.T) {
	t.Parallel()

	got, err := SelectorFromChainID(big.NewInt(1337))
	require.NoError(t, err)
	assert.Equal(t, chainsel.GETH_TESTNET.Selector, got)

	_, err = SelectorFromChainID(nil)
	require.ErrorContains(t, err, "chain id is nil")

	_, err = SelectorFromChainID(big.NewInt(999_999_999_999))
	require.ErrorContains(t, err, "no chain selector for evm chain id 999999999999")
}
