package vault

import (
	"bytes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Speck128/256 vector from the Simon and Speck paper.
func TestSpeckVector(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	block, err := newSpeck(key)
	require.NoError(t, err)

	x, y := block.(*speckCipher).encryptWords(0x65736f6874206e49, 0x202e72656e6f6f70)
	assert.Equal(t, uint64(0x4109010405c0f53e), x)
	assert.Equal(t, uint64(0x4eeeb48d9c188f43), y)

	ct := make([]byte, 16)
	block.Encrypt(ct, []byte("pooner. In those"))
	assert.Equal(t, "438f189c8db4ee4e3ef5c00504010941", hex.EncodeToString(ct))

	pt := make([]byte, 16)
	block.Decrypt(pt, ct)
	assert.Equal(t, "pooner. In those", string(pt))
}

func TestSpeckInvalidKey(t *testing.T) {
	_, err := newSpeck(make([]byte, 16))
	assert.Error(t, err)
}

func TestSpeckCBCRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key")
		iv := rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "iv")
		msg := rapid.SliceOf(rapid.Byte()).Draw(t, "msg")

		block, err := newSpeck(key)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		padded := pkcs7Pad(msg, speckBlockSize)
		ct := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

		out := make([]byte, len(ct))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
		got, ok := pkcs7Unpad(out, speckBlockSize)
		if !ok || !bytes.Equal(got, msg) {
			t.Fatalf("round trip mismatch")
		}
	})
}

func TestPKCS7Unpad(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		ok   bool
	}{
		{"empty", nil, false},
		{"partial block", []byte{1, 2, 3}, false},
		{"zero pad", append(bytes.Repeat([]byte{9}, 15), 0), false},
		{"pad too large", append(bytes.Repeat([]byte{9}, 15), 17), false},
		{"inconsistent", append(bytes.Repeat([]byte{9}, 14), 3, 2), false},
		{"full pad block", bytes.Repeat([]byte{16}, 16), true},
		{"one byte", append(bytes.Repeat([]byte{9}, 15), 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := pkcs7Unpad(tt.in, 16)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
