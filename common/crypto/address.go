package crypto

import (
	"encoding/hex"

	prt "github.com/abcfe/abcfe-keyring/protocol"
	"github.com/btcsuite/btcd/btcec/v2"
)

// PublicKeyToAddress returns the last 20 bytes of keccak256 over the uncompressed
// public key without its 0x04 tag.
func PublicKeyToAddress(publicKey *btcec.PublicKey) prt.Address {
	pubBytes := publicKey.SerializeUncompressed()
	hash := Keccak256(pubBytes[1:])

	var address prt.Address
	copy(address[:], hash[len(hash)-prt.AddressLength:])
	return address
}

// Add 0x prefix to address
func AddressTo0xPrefixString(address prt.Address) string {
	return "0x" + hex.EncodeToString(address[:])
}

// AddressToChecksumHex renders the EIP-55 mixed-case form.
func AddressToChecksumHex(address prt.Address) string {
	lower := []byte(hex.EncodeToString(address[:]))
	hash := Keccak256(lower)

	for i, c := range lower {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			lower[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(lower)
}
