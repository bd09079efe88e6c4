package utils

import (
	"fmt"
	"strings"
)

// ShortHash abbreviates a 0x-prefixed hash for display: first 8 and last 8
// characters.
func ShortHash(hash string) string {
	if len(hash) <= 18 {
		return hash
	}
	return fmt.Sprintf("%s...%s", hash[:8], hash[len(hash)-8:])
}

// ShortAddress abbreviates an address for display: first 6 and last 4
// characters.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return fmt.Sprintf("%s...%s", address[:6], address[len(address)-4:])
}

// ExplorerTxURL builds a block explorer link for a transaction.
func ExplorerTxURL(explorerBase, txID string) string {
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(explorerBase, "/"), txID)
}

// ExplorerAddressURL builds a block explorer link for an account.
func ExplorerAddressURL(explorerBase, address string) string {
	return fmt.Sprintf("%s/address/%s", strings.TrimRight(explorerBase, "/"), address)
}
