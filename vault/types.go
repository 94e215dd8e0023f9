package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const kdfPBKDF2 = "PBKDF2"

// Bytes is base64 in JSON. Decoding also accepts an array of integers.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("invalid base64: %w", err)
		}
		*b = raw
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("expected base64 string or byte array")
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte array value %d out of range", v)
		}
		raw[i] = byte(v)
	}
	*b = raw
	return nil
}

type EncryptionOptions struct {
	IVOrNonce Bytes  `json:"ivOrNonce"`
	Algorithm string `json:"algorithm"` // "Aes256Gcm" or "SpeckCBC"
}

type KeyMetadata struct {
	Salt       string `json:"salt"`      // base64
	Algorithm  string `json:"algorithm"` // "PBKDF2"
	Iterations int    `json:"iterations"`
}

// File is the on-disk vault document.
type File struct {
	Data              string            `json:"data"` // base64 ciphertext
	EncryptionOptions EncryptionOptions `json:"encryptionOptions"`
	KeyMetadata       KeyMetadata       `json:"keyMetadata"`
}

// Payload is what a keyring backup encrypts: enough to rebuild every account.
type Payload struct {
	Mnemonic    string `json:"mnemonic"`
	NumAccounts int    `json:"num_accounts"`
}
