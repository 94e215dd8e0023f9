package utils

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	prt "github.com/abcfe/abcfe-keyring/protocol"
)

// TrimHexPrefix strips an optional 0x or 0X prefix.
func TrimHexPrefix(str string) string {
	if len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X') {
		return str[2:]
	}
	return str
}

// DecodeHex decodes a hex string with or without 0x prefix.
func DecodeHex(str string) ([]byte, error) {
	return hex.DecodeString(TrimHexPrefix(strings.TrimSpace(str)))
}

// HashToString Hash as lowercase hex, no prefix
func HashToString(hash prt.Hash) string {
	return hex.EncodeToString(hash[:])
}

// AddressToString Address as lowercase hex, no prefix
func AddressToString(address prt.Address) string {
	return hex.EncodeToString(address[:])
}

// StringToAddress parses a 20-byte hex address. Checksum casing is not verified.
func StringToAddress(str string) (prt.Address, error) {
	bytes, err := DecodeHex(str)
	if err != nil {
		return prt.Address{}, fmt.Errorf("invalid address string: %w", err)
	}
	if len(bytes) != prt.AddressLength {
		return prt.Address{}, fmt.Errorf("invalid address length: %d (need %d bytes)", len(bytes), prt.AddressLength)
	}

	var address prt.Address
	copy(address[:], bytes)
	return address, nil
}

// SignatureToString Signature as 0x-prefixed hex
func SignatureToString(sig prt.Signature) string {
	return "0x" + hex.EncodeToString(sig[:])
}

// StringToSignature parses a 65-byte r || s || v hex signature
func StringToSignature(str string) (prt.Signature, error) {
	bytes, err := DecodeHex(str)
	if err != nil {
		return prt.Signature{}, fmt.Errorf("invalid signature string: %w", err)
	}
	if len(bytes) != len(prt.Signature{}) {
		return prt.Signature{}, fmt.Errorf("invalid signature length: %d (need 65 bytes)", len(bytes))
	}

	var sig prt.Signature
	copy(sig[:], bytes)
	return sig, nil
}

// Uint32ToBytes big-endian encoding, used for BIP32 child indexes
func Uint32ToBytes(value uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, value)
	return buf
}

// Uint64ToBytes big-endian encoding (DB values)
func Uint64ToBytes(value uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf
}

// BytesToUint64 reads a big-endian uint64. Short input yields 0.
func BytesToUint64(data []byte) uint64 {
	if len(data) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
