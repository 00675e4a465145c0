package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureTableResolvesSelectors(t *testing.T) {
	abis, err := ParseABIs()
	require.NoError(t, err)

	table := BuildSignatureTable(abis.Marketplace, abis.Fungible, abis.Game)

	accept := abis.Marketplace.Methods["acceptOffer"]
	assert.Equal(t, "acceptOffer", table.MethodName(accept.ID))

	acceptTrade := abis.Fungible.Methods["acceptTrade"]
	assert.Equal(t, "acceptTrade", table.MethodName(acceptTrade.ID))

	// selectors resolve with trailing call data attached
	input := append(accept.ID, make([]byte, 96)...)
	assert.Equal(t, "acceptOffer", table.MethodName(input))
}

func TestMethodNameUnknownOrShortInput(t *testing.T) {
	abis, err := ParseABIs()
	require.NoError(t, err)
	table := BuildSignatureTable(abis.Marketplace)

	assert.Equal(t, "", table.MethodName(nil))
	assert.Equal(t, "", table.MethodName([]byte{0x01, 0x02}))
	assert.Equal(t, "", table.MethodName([]byte{0xde, 0xad, 0xbe, 0xef}))
}
