package wallet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMnemonicFromPhrase(t *testing.T) {
	m, err := MnemonicFromPhrase("  myth like bonus scare over problem\nclient lizard pioneer submit female collect ")
	require.NoError(t, err)
	assert.Equal(t, ganacheMnemonic, m.Phrase())
	assert.Equal(t, 12, m.WordCount())
	assert.Len(t, m.ToSeed(""), 64)
	assert.NotEqual(t, m.ToSeed(""), m.ToSeed("TREZOR"))

	for _, bad := range []string{
		"",
		"myth like bonus",
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
		"notaword like bonus scare over problem client lizard pioneer submit female collect",
	} {
		_, err := MnemonicFromPhrase(bad)
		assert.ErrorIs(t, err, ErrInvalidMnemonic, bad)
	}
}

func TestRandomMnemonic(t *testing.T) {
	for words := range wordCountEntropyBits {
		m, err := RandomMnemonic(nil, words)
		require.NoError(t, err)
		assert.Equal(t, words, m.WordCount())

		_, err = MnemonicFromPhrase(m.Phrase())
		require.NoError(t, err)
	}

	_, err := RandomMnemonic(nil, 13)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	// all-zero entropy is the well known "abandon ... about" phrase
	m, err := RandomMnemonic(bytes.NewReader(make([]byte, 16)), 12)
	require.NoError(t, err)
	assert.Equal(t, "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", m.Phrase())

	_, err = RandomMnemonic(bytes.NewReader(make([]byte, 4)), 12)
	assert.Error(t, err)
}
