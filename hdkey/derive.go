package hdkey

import (
	"crypto/hmac"
	"crypto/sha512"
	"fmt"

	"github.com/abcfe/abcfe-keyring/common/crypto"
	"github.com/abcfe/abcfe-keyring/common/utils"
	"github.com/btcsuite/btcd/btcec/v2"
)

var masterHMACKey = []byte("Bitcoin seed")

// ExtendedKey is a private scalar plus chain code. It is never persisted.
type ExtendedKey struct {
	key       btcec.ModNScalar
	chainCode [32]byte
}

// NewMaster computes the master extended key HMAC-SHA512("Bitcoin seed", seed).
func NewMaster(seed []byte) (*ExtendedKey, error) {
	mac := hmac.New(sha512.New, masterHMACKey)
	mac.Write(seed)
	return fromHMAC(mac.Sum(nil), crypto.ErrInvalidSecret)
}

// fromHMAC splits I into IL (key) and IR (chain code). invalid is returned when IL
// is not a valid scalar.
func fromHMAC(sum []byte, invalid error) (*ExtendedKey, error) {
	ek := &ExtendedKey{}
	if overflow := ek.key.SetByteSlice(sum[:32]); overflow || ek.key.IsZero() {
		return nil, fmt.Errorf("%w: master key out of range", invalid)
	}
	copy(ek.chainCode[:], sum[32:])
	return ek, nil
}

// Child derives the private child key for c.
func (k *ExtendedKey) Child(c Component) (*ExtendedKey, error) {
	if k.key.IsZero() {
		return nil, fmt.Errorf("%w: zero parent key", crypto.ErrInvalidSecret)
	}

	mac := hmac.New(sha512.New, k.chainCode[:])
	switch c.kind {
	case kindHardened:
		secret := k.key.Bytes()
		mac.Write([]byte{0x00})
		mac.Write(secret[:])
	case kindNormal:
		mac.Write(btcec.PrivKeyFromScalar(&k.key).PubKey().SerializeCompressed())
	default:
		return nil, fmt.Errorf("%w: unknown component kind", ErrInvalidPath)
	}
	mac.Write(utils.Uint32ToBytes(c.Value()))
	sum := mac.Sum(nil)

	child := &ExtendedKey{}
	if overflow := child.key.SetByteSlice(sum[:32]); overflow {
		return nil, fmt.Errorf("%w: at %s", ErrDerivationFailure, c)
	}
	child.key.Add(&k.key)
	if child.key.IsZero() {
		return nil, fmt.Errorf("%w: at %s", ErrDerivationFailure, c)
	}
	copy(child.chainCode[:], sum[32:])
	return child, nil
}

// DerivePath applies every component of path in order.
func (k *ExtendedKey) DerivePath(path Path) (*ExtendedKey, error) {
	cur := k
	for _, c := range path {
		next, err := cur.Child(c)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Secret returns a copy of the 32-byte private scalar.
func (k *ExtendedKey) Secret() []byte {
	b := k.key.Bytes()
	return b[:]
}

// ChainCode returns a copy of the chain code.
func (k *ExtendedKey) ChainCode() []byte {
	out := make([]byte, len(k.chainCode))
	copy(out, k.chainCode[:])
	return out
}

// Derive returns the 32-byte secret at path below the master key of seed. It is a
// pure function and safe to call concurrently on a shared seed.
func Derive(seed []byte, path Path) ([]byte, error) {
	master, err := NewMaster(seed)
	if err != nil {
		return nil, err
	}
	child, err := master.DerivePath(path)
	if err != nil {
		return nil, err
	}
	return child.Secret(), nil
}
