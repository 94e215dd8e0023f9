package keystore

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testSecret = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

func secretBytes(t testing.TB) []byte {
	b, err := hex.DecodeString(testSecret)
	require.NoError(t, err)
	return b
}

func fastScrypt() Options {
	return Options{KDF: KDFOptions{Name: KDFScrypt, ScryptN: 1 << 10, ScryptR: 8, ScryptP: 1}}
}

func fastPBKDF2() Options {
	return Options{KDF: KDFOptions{Name: KDFPBKDF2, PBKDF2Iterations: 1024}}
}

func TestEncryptDecrypt(t *testing.T) {
	tests := []struct {
		name string
		opts func() Options
		mac  MACScheme
	}{
		{"scrypt/hmac", fastScrypt, MACHMACSHA256},
		{"scrypt/keccak", fastScrypt, MACKeccak256},
		{"pbkdf2/hmac", fastPBKDF2, MACHMACSHA256},
		{"pbkdf2/keccak", fastPBKDF2, MACKeccak256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts()
			opts.MAC = tt.mac

			k, err := Encrypt(secretBytes(t), []byte("foo"), opts)
			require.NoError(t, err)
			assert.Equal(t, 3, k.Version)
			assert.Equal(t, "aes-128-ctr", k.Crypto.Cipher)
			assert.Equal(t, "90f8bf6a479f320ead074411a4b0e7944ea8c9c1", k.Address)
			assert.Len(t, k.Crypto.KDFParams.Salt, 64)
			assert.Len(t, k.Crypto.CipherParams.IV, 32)

			secret, err := Decrypt(k, []byte("foo"))
			require.NoError(t, err)
			assert.Equal(t, secretBytes(t), secret)

			_, err = Decrypt(k, []byte("bar"))
			assert.ErrorIs(t, err, ErrWrongPassword)
		})
	}
}

func TestKDFParamsShape(t *testing.T) {
	k, err := Encrypt(secretBytes(t), []byte("foo"), fastScrypt())
	require.NoError(t, err)
	raw, err := json.Marshal(k.Crypto.KDFParams)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "n")
	assert.Contains(t, fields, "r")
	assert.Contains(t, fields, "p")
	assert.NotContains(t, fields, "c")
	assert.NotContains(t, fields, "prf")

	k, err = Encrypt(secretBytes(t), []byte("foo"), fastPBKDF2())
	require.NoError(t, err)
	raw, err = json.Marshal(k.Crypto.KDFParams)
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "hmac-sha256", fields["prf"])
	assert.Contains(t, fields, "c")
	assert.NotContains(t, fields, "n")
}

func TestEncryptDeterministicWithFixedReader(t *testing.T) {
	newOpts := func() Options {
		opts := fastPBKDF2()
		opts.Rand = bytes.NewReader(bytes.Repeat([]byte{7}, 128))
		return opts
	}

	a, err := Encrypt(secretBytes(t), []byte("foo"), newOpts())
	require.NoError(t, err)
	b, err := Encrypt(secretBytes(t), []byte("foo"), newOpts())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncryptRejectsInvalidSecret(t *testing.T) {
	_, err := Encrypt(make([]byte, 32), []byte("foo"), fastPBKDF2())
	assert.Error(t, err)

	_, err = Encrypt([]byte{1, 2, 3}, []byte("foo"), fastPBKDF2())
	assert.Error(t, err)

	opts := fastPBKDF2()
	opts.KDF.Name = "argon2"
	_, err = Encrypt(secretBytes(t), []byte("foo"), opts)
	assert.ErrorIs(t, err, ErrUnsupportedKDF)
}

// Web3 Secret Storage test vector (PBKDF2, keccak MAC, no address field).
func TestDecryptWeb3Vector(t *testing.T) {
	doc := `{
		"crypto": {
			"cipher": "aes-128-ctr",
			"cipherparams": {"iv": "6087dab2f9fdbbfaddc31a909735c1e6"},
			"ciphertext": "5318b4d5bcd28de64ee5559e671353e16f075ecae9f99c7a79a38af5f869aa46",
			"kdf": "pbkdf2",
			"kdfparams": {
				"c": 262144,
				"dklen": 32,
				"prf": "hmac-sha256",
				"salt": "ae3cd4e7013836a3df6bd7241b12db061dbe2c6785853cce422d148a624ce0bd"
			},
			"mac": "517ead924a9d0dc3124507e3393d175ce3ff7c1e96529c6c555ce9e51205e9b2"
		},
		"id": "3198bc9c-6672-5ab3-d995-4942343ae5b6",
		"version": 3
	}`

	k, err := Unmarshal([]byte(doc))
	require.NoError(t, err)

	secret, err := Decrypt(k, []byte("testpassword"))
	require.NoError(t, err)
	assert.Equal(t, "7a28b5ba57c53603b0b07b56bba752f7784bf506fa95edc395f5cf6c7514fe9d", hex.EncodeToString(secret))

	_, err = Decrypt(k, []byte("wrongpassword"))
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestDecryptRejects(t *testing.T) {
	base := func(t *testing.T) *KeyJSON {
		k, err := Encrypt(secretBytes(t), []byte("foo"), fastPBKDF2())
		require.NoError(t, err)
		return k
	}

	tests := []struct {
		name   string
		mutate func(k *KeyJSON)
		err    error
	}{
		{"version", func(k *KeyJSON) { k.Version = 1 }, ErrUnsupportedVersion},
		{"cipher", func(k *KeyJSON) { k.Crypto.Cipher = "aes-256-gcm" }, ErrUnsupportedCipher},
		{"kdf", func(k *KeyJSON) { k.Crypto.KDF = "bcrypt" }, ErrUnsupportedKDF},
		{"prf", func(k *KeyJSON) { k.Crypto.KDFParams.PRF = "hmac-sha512" }, ErrUnsupportedKDF},
		{"iv hex", func(k *KeyJSON) { k.Crypto.CipherParams.IV = "zz" }, ErrMalformedKeystore},
		{"iv length", func(k *KeyJSON) { k.Crypto.CipherParams.IV = "00" }, ErrMalformedKeystore},
		{"ciphertext", func(k *KeyJSON) { k.Crypto.CipherText = "" }, ErrMalformedKeystore},
		{"mac length", func(k *KeyJSON) { k.Crypto.MAC = "abcd" }, ErrMalformedKeystore},
		{"salt", func(k *KeyJSON) { k.Crypto.KDFParams.Salt = "" }, ErrMalformedKeystore},
		{"dklen", func(k *KeyJSON) { k.Crypto.KDFParams.DkLen = 64 }, ErrMalformedKeystore},
		{"iterations", func(k *KeyJSON) { k.Crypto.KDFParams.C = maxPBKDF2Iterations + 1 }, ErrMalformedKeystore},
		{"tampered ciphertext", func(k *KeyJSON) {
			ct, _ := hex.DecodeString(k.Crypto.CipherText)
			ct[0] ^= 1
			k.Crypto.CipherText = hex.EncodeToString(ct)
		}, ErrWrongPassword},
		{"tampered mac", func(k *KeyJSON) {
			mac, _ := hex.DecodeString(k.Crypto.MAC)
			mac[31] ^= 1
			k.Crypto.MAC = hex.EncodeToString(mac)
		}, ErrWrongPassword},
		{"address", func(k *KeyJSON) { k.Address = "0000000000000000000000000000000000000001" }, ErrAddressMismatch},
		{"address hex", func(k *KeyJSON) { k.Address = "xyz" }, ErrMalformedKeystore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := base(t)
			tt.mutate(k)
			_, err := Decrypt(k, []byte("foo"))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecryptBoundsScryptCost(t *testing.T) {
	k, err := Encrypt(secretBytes(t), []byte("foo"), fastScrypt())
	require.NoError(t, err)

	for _, mutate := range []func(p *KDFParams){
		func(p *KDFParams) { p.N = 1 << 30 },
		func(p *KDFParams) { p.N = 1000 },
		func(p *KDFParams) { p.R = 0 },
		func(p *KDFParams) { p.P = 1 << 20 },
	} {
		bad := *k
		mutate(&bad.Crypto.KDFParams)
		_, err := Decrypt(&bad, []byte("foo"))
		assert.ErrorIs(t, err, ErrMalformedKeystore)
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	for _, doc := range []string{"", "{", "[]", `{"crypto": 5}`} {
		_, err := Unmarshal([]byte(doc))
		assert.ErrorIs(t, err, ErrMalformedKeystore, doc)
	}
}

func TestDecryptNeverPanics(t *testing.T) {
	k, err := Encrypt(secretBytes(t), []byte("foo"), Options{KDF: KDFOptions{Name: KDFPBKDF2, PBKDF2Iterations: 1}})
	require.NoError(t, err)
	data, err := Marshal(k)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		mutated := append([]byte(nil), data...)
		n := rapid.IntRange(1, 8).Draw(t, "flips")
		for i := 0; i < n; i++ {
			pos := rapid.IntRange(0, len(mutated)-1).Draw(t, "pos")
			mutated[pos] = rapid.Byte().Draw(t, "byte")
		}
		parsed, err := Unmarshal(mutated)
		if err != nil {
			return
		}
		if parsed.Crypto.KDF == string(KDFPBKDF2) && parsed.Crypto.KDFParams.C > 1000 {
			return
		}
		_, _ = Decrypt(parsed, []byte("foo"))
	})
}

func TestKeyFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteKeyFile(dir, secretBytes(t), []byte("foo"), fastScrypt())
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyFileMode), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	secret, err := ReadKeyFile(path, []byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, secretBytes(t), secret)

	_, err = ReadKeyFile(path, []byte("bar"))
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = ReadKeyFile(filepath.Join(dir, "missing.json"), []byte("foo"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
