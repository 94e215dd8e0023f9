package wallet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/abcfe/abcfe-keyring/common/utils"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Mnemonic is a checksum-validated BIP-39 English phrase.
type Mnemonic struct {
	phrase string
}

// MnemonicFromPhrase validates phrase. Runs of whitespace are collapsed.
func MnemonicFromPhrase(phrase string) (*Mnemonic, error) {
	normalized := strings.Join(strings.Fields(phrase), " ")
	if !bip39.IsMnemonicValid(normalized) {
		return nil, ErrInvalidMnemonic
	}
	return &Mnemonic{phrase: normalized}, nil
}

// RandomMnemonic builds a phrase of wordCount words from entropy read from r.
func RandomMnemonic(r io.Reader, wordCount int) (*Mnemonic, error) {
	bits, ok := wordCountEntropyBits[wordCount]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported word count %d", ErrInvalidMnemonic, wordCount)
	}
	entropy, err := utils.RandomBytes(r, bits/8)
	if err != nil {
		return nil, err
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return &Mnemonic{phrase: phrase}, nil
}

func (m *Mnemonic) Phrase() string {
	return m.phrase
}

func (m *Mnemonic) WordCount() int {
	return len(strings.Fields(m.phrase))
}

// ToSeed is the 64-byte BIP-39 seed (PBKDF2-HMAC-SHA512, 2048 rounds).
func (m *Mnemonic) ToSeed(passphrase string) []byte {
	return bip39.NewSeed(m.phrase, passphrase)
}
