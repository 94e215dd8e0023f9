package wallet

import (
	prt "github.com/abcfe/abcfe-keyring/protocol"
)

// Account is the public view of one keyring entry.
type Account struct {
	Index   int         `json:"index"`   // Account index (0, 1, 2...)
	Address prt.Address `json:"address"` // 20-byte address
	Path    string      `json:"path"`    // BIP-44 path (m/44'/60'/0'/0/i)
}

// Mnemonic word counts accepted by RandomMnemonic and the bits of entropy behind each.
var wordCountEntropyBits = map[int]int{
	12: 128,
	15: 160,
	18: 192,
	21: 224,
	24: 256,
}

const DefaultWordCount = 12
