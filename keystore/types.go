package keystore

const (
	version         = 3
	cipherAES128CTR = "aes-128-ctr"
)

type CipherParams struct {
	IV string `json:"iv"` // Initialization vector, hex
}

// KDFParams carries the parameters of either KDF. Fields that do not belong to the
// selected KDF stay zero and are omitted.
type KDFParams struct {
	C     int    `json:"c,omitempty"`   // PBKDF2 iteration count
	DkLen int    `json:"dklen"`         // Derived key length
	N     int    `json:"n,omitempty"`   // scrypt CPU/Memory cost
	P     int    `json:"p,omitempty"`   // scrypt parallelization parameter
	PRF   string `json:"prf,omitempty"` // PBKDF2 pseudo random function
	R     int    `json:"r,omitempty"`   // scrypt block size
	Salt  string `json:"salt"`          // Salt, hex
}

type Crypto struct {
	Cipher       string       `json:"cipher"`     // "aes-128-ctr"
	CipherText   string       `json:"ciphertext"` // Encrypted private key, hex
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "scrypt" or "pbkdf2"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // Integrity check, hex
}

// KeyJSON is the Web3 Secret Storage v3 document for one private key.
type KeyJSON struct {
	Address string `json:"address,omitempty"` // hex, no 0x prefix
	Crypto  Crypto `json:"crypto"`
	ID      string `json:"id"`
	Version int    `json:"version"`
}
