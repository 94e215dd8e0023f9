package vault

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testMnemonic = "lend pole exclude donkey range tank gather space dress topic fantasy siege"

var fastOpts = Options{Iterations: 1000}

func TestEncodeDecode(t *testing.T) {
	for _, alg := range []Algorithm{Aes256Gcm, SpeckCBC} {
		t.Run(alg.String(), func(t *testing.T) {
			p := &Payload{Mnemonic: testMnemonic, NumAccounts: 3}

			f, err := Encode(p, []byte("secret"), alg, fastOpts)
			require.NoError(t, err)
			assert.Equal(t, alg.String(), f.EncryptionOptions.Algorithm)
			assert.Equal(t, "PBKDF2", f.KeyMetadata.Algorithm)
			assert.Equal(t, 1000, f.KeyMetadata.Iterations)

			salt, err := base64.StdEncoding.DecodeString(f.KeyMetadata.Salt)
			require.NoError(t, err)
			assert.Len(t, salt, 32)

			decoded, err := Decode(f, []byte("secret"))
			require.NoError(t, err)
			assert.Equal(t, p, decoded)
		})
	}
}

func TestNonceSizes(t *testing.T) {
	f, err := Seal([]byte("x"), []byte("pw"), Aes256Gcm, fastOpts)
	require.NoError(t, err)
	assert.Len(t, f.EncryptionOptions.IVOrNonce, 12)

	f, err = Seal([]byte("x"), []byte("pw"), SpeckCBC, fastOpts)
	require.NoError(t, err)
	assert.Len(t, f.EncryptionOptions.IVOrNonce, 16)
}

func TestDefaultIterations(t *testing.T) {
	f, err := Seal([]byte("x"), []byte("pw"), Aes256Gcm, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultIterations, f.KeyMetadata.Iterations)

	_, err = Seal([]byte("x"), []byte("pw"), Aes256Gcm, Options{Iterations: -1})
	assert.Error(t, err)
}

func TestWrongPassword(t *testing.T) {
	f, err := Encode(&Payload{Mnemonic: testMnemonic, NumAccounts: 1}, []byte("secret"), Aes256Gcm, fastOpts)
	require.NoError(t, err)

	_, err = Decode(f, []byte("not the secret"))
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

// Speck-CBC has no tag: a wrong password fails on padding or on payload parsing,
// and both report ErrWrongPassword.
func TestWrongPasswordSpeck(t *testing.T) {
	f, err := Encode(&Payload{Mnemonic: testMnemonic, NumAccounts: 1}, []byte("secret"), SpeckCBC, fastOpts)
	require.NoError(t, err)

	for _, pw := range []string{"not the secret", "hunter2", "", "secret "} {
		p, err := Decode(f, []byte(pw))
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrWrongPassword, pw)
	}
}

// Garbage that decrypts with valid padding looks exactly like a wrong password.
func TestSpeckUnreadablePayloadIsWrongPassword(t *testing.T) {
	f, err := Seal([]byte("not json"), []byte("pw"), SpeckCBC, fastOpts)
	require.NoError(t, err)

	_, err = Decode(f, []byte("pw"))
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.False(t, errors.Is(err, ErrMalformedPayload))
}

func TestDecodeAccountCountBounds(t *testing.T) {
	tests := []struct {
		name  string
		count int
		ok    bool
	}{
		{"zero", 0, true},
		{"max", MaxAccounts, true},
		{"above max", MaxAccounts + 1, false},
		{"hardened range", 1 << 31, false},
		{"negative", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Encode(&Payload{Mnemonic: testMnemonic, NumAccounts: tt.count}, []byte("pw"), Aes256Gcm, fastOpts)
			require.NoError(t, err)

			p, err := Decode(f, []byte("pw"))
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.count, p.NumAccounts)
				return
			}
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestOpenRejects(t *testing.T) {
	base := func(t *testing.T, alg Algorithm) *File {
		f, err := Encode(&Payload{Mnemonic: testMnemonic, NumAccounts: 2}, []byte("pw"), alg, fastOpts)
		require.NoError(t, err)
		return f
	}

	tests := []struct {
		name   string
		alg    Algorithm
		mutate func(f *File)
		err    error
	}{
		{"unknown algorithm", Aes256Gcm, func(f *File) { f.EncryptionOptions.Algorithm = "ChaCha20" }, ErrUnsupportedAlgorithm},
		{"empty algorithm", Aes256Gcm, func(f *File) { f.EncryptionOptions.Algorithm = "" }, ErrUnsupportedAlgorithm},
		{"unknown kdf", Aes256Gcm, func(f *File) { f.KeyMetadata.Algorithm = "scrypt" }, ErrUnsupportedKDF},
		{"zero iterations", Aes256Gcm, func(f *File) { f.KeyMetadata.Iterations = 0 }, ErrMalformedVault},
		{"huge iterations", Aes256Gcm, func(f *File) { f.KeyMetadata.Iterations = MaxIterations + 1 }, ErrMalformedVault},
		{"bad salt", Aes256Gcm, func(f *File) { f.KeyMetadata.Salt = "%%%" }, ErrMalformedVault},
		{"bad data", Aes256Gcm, func(f *File) { f.Data = "%%%" }, ErrMalformedVault},
		{"short nonce", Aes256Gcm, func(f *File) { f.EncryptionOptions.IVOrNonce = f.EncryptionOptions.IVOrNonce[:4] }, ErrMalformedVault},
		{"short gcm data", Aes256Gcm, func(f *File) { f.Data = base64.StdEncoding.EncodeToString([]byte{1, 2}) }, ErrMalformedVault},
		{"tampered gcm", Aes256Gcm, func(f *File) {
			raw, _ := base64.StdEncoding.DecodeString(f.Data)
			raw[0] ^= 1
			f.Data = base64.StdEncoding.EncodeToString(raw)
		}, ErrAuthenticationFailure},
		{"long iv", SpeckCBC, func(f *File) { f.EncryptionOptions.IVOrNonce = append(f.EncryptionOptions.IVOrNonce, 0) }, ErrMalformedVault},
		{"partial block", SpeckCBC, func(f *File) {
			raw, _ := base64.StdEncoding.DecodeString(f.Data)
			f.Data = base64.StdEncoding.EncodeToString(raw[:len(raw)-1])
		}, ErrMalformedVault},
		{"empty cbc data", SpeckCBC, func(f *File) { f.Data = "" }, ErrMalformedVault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base(t, tt.alg)
			tt.mutate(f)
			_, err := Decode(f, []byte("pw"))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	f, err := Seal([]byte("not json"), []byte("pw"), Aes256Gcm, fastOpts)
	require.NoError(t, err)
	_, err = Decode(f, []byte("pw"))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	f, err = Seal([]byte(`{"mnemonic":"a","num_accounts":-1}`), []byte("pw"), Aes256Gcm, fastOpts)
	require.NoError(t, err)
	_, err = Decode(f, []byte("pw"))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestFileJSONShape(t *testing.T) {
	f, err := Encode(&Payload{Mnemonic: testMnemonic, NumAccounts: 1}, []byte("pw"), Aes256Gcm, fastOpts)
	require.NoError(t, err)
	data, err := Marshal(f)
	require.NoError(t, err)

	var doc map[string]map[string]any
	var top map[string]any
	require.NoError(t, json.Unmarshal(data, &top))
	assert.IsType(t, "", top["data"])
	delete(top, "data")
	rest, err := json.Marshal(top)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rest, &doc))

	assert.Equal(t, "Aes256Gcm", doc["encryptionOptions"]["algorithm"])
	assert.IsType(t, "", doc["encryptionOptions"]["ivOrNonce"])
	assert.Equal(t, "PBKDF2", doc["keyMetadata"]["algorithm"])
	assert.EqualValues(t, 1000, doc["keyMetadata"]["iterations"])
}

func TestIVOrNonceAcceptsByteArray(t *testing.T) {
	f, err := Encode(&Payload{Mnemonic: testMnemonic, NumAccounts: 1}, []byte("pw"), Aes256Gcm, fastOpts)
	require.NoError(t, err)

	ints := make([]int, len(f.EncryptionOptions.IVOrNonce))
	for i, b := range f.EncryptionOptions.IVOrNonce {
		ints[i] = int(b)
	}
	nonce, _ := json.Marshal(ints)
	doc := `{"data":"` + f.Data + `","encryptionOptions":{"ivOrNonce":` + string(nonce) +
		`,"algorithm":"Aes256Gcm"},"keyMetadata":{"salt":"` + f.KeyMetadata.Salt +
		`","algorithm":"PBKDF2","iterations":1000}}`

	parsed, err := Unmarshal([]byte(doc))
	require.NoError(t, err)
	p, err := Decode(parsed, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, p.Mnemonic)

	_, err = Unmarshal([]byte(`{"encryptionOptions":{"ivOrNonce":[256]}}`))
	assert.ErrorIs(t, err, ErrMalformedVault)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	p := &Payload{Mnemonic: testMnemonic, NumAccounts: 4}

	name, err := WriteFile(dir, p, []byte("pw"), SpeckCBC, fastOpts)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".json"))
	assert.Len(t, strings.TrimSuffix(name, ".json"), 36)

	decoded, err := ReadFile(filepath.Join(dir, name), []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, p, decoded)

	_, err = ReadFile(filepath.Join(dir, "missing.json"), []byte("pw"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = ReadFile(bad, []byte("pw"))
	assert.ErrorIs(t, err, ErrMalformedVault)
}

func TestDecodeNeverPanics(t *testing.T) {
	f, err := Encode(&Payload{Mnemonic: testMnemonic, NumAccounts: 1}, []byte("pw"), SpeckCBC, Options{Iterations: 1})
	require.NoError(t, err)
	data, err := Marshal(f)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		mutated := bytes.Clone(data)
		n := rapid.IntRange(1, 8).Draw(t, "flips")
		for i := 0; i < n; i++ {
			pos := rapid.IntRange(0, len(mutated)-1).Draw(t, "pos")
			mutated[pos] = rapid.Byte().Draw(t, "byte")
		}
		parsed, err := Unmarshal(mutated)
		if err != nil || parsed.KeyMetadata.Iterations > 1000 {
			return
		}
		_, _ = Decode(parsed, []byte("pw"))
	})
}
