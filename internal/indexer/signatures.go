package indexer

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// SignatureTable maps 4-byte method selectors (hex, no 0x prefix) to method
// names. Built once at startup from the contract ABIs and never mutated, it
// lets the purchase reducer tell which contract function a transaction
// invoked from its call data alone.
type SignatureTable map[string]string

// BuildSignatureTable collects the method selectors of all given ABIs.
func BuildSignatureTable(abis ...abi.ABI) SignatureTable {
	table := make(SignatureTable)
	for _, contract := range abis {
		for _, method := range contract.Methods {
			table[hex.EncodeToString(method.ID)] = method.RawName
		}
	}
	return table
}

// MethodName resolves the function a transaction called, or "" when the
// selector is unknown or the call data is too short.
func (t SignatureTable) MethodName(input []byte) string {
	if len(input) < 4 {
		return ""
	}
	return t[hex.EncodeToString(input[:4])]
}
