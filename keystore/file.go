package keystore

import (
	"fmt"
	"os"

	"github.com/abcfe/abcfe-keyring/common/utils"
)

const keyFileMode = 0o600

// WriteKeyFile encrypts secret and writes it atomically to dir/<id>.json.
// It returns the full path of the new file.
func WriteKeyFile(dir string, secret, password []byte, opts Options) (string, error) {
	k, err := Encrypt(secret, password, opts)
	if err != nil {
		return "", err
	}
	data, err := Marshal(k)
	if err != nil {
		return "", err
	}
	path, err := utils.WriteFileAtomic(dir, k.ID+".json", data, keyFileMode)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return path, nil
}

// ReadKeyJSON loads a key file without decrypting it.
func ReadKeyJSON(path string) (*KeyJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return Unmarshal(data)
}

// ReadKeyFile loads and decrypts a key file.
func ReadKeyFile(path string, password []byte) ([]byte, error) {
	k, err := ReadKeyJSON(path)
	if err != nil {
		return nil, err
	}
	return Decrypt(k, password)
}
