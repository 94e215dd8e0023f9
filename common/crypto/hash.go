package crypto

import (
	"strconv"

	prt "github.com/abcfe/abcfe-keyring/protocol"
	"golang.org/x/crypto/sha3"
)

const personalMessagePrefix = "\x19Ethereum Signed Message:\n"

// Keccak256 is the original Keccak (pre-NIST padding) over the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

func Keccak256Hash(data ...[]byte) prt.Hash {
	var out prt.Hash
	copy(out[:], Keccak256(data...))
	return out
}

// TextHash is the digest signed by personal_sign:
// keccak256("\x19Ethereum Signed Message:\n" + decimal(len(msg)) + msg).
func TextHash(msg []byte) prt.Hash {
	return Keccak256Hash([]byte(personalMessagePrefix), []byte(strconv.Itoa(len(msg))), msg)
}
