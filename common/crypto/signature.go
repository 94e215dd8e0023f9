package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"

	prt "github.com/abcfe/abcfe-keyring/protocol"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// compactHeaderBase is the header byte offset used by the compact format for
// uncompressed keys.
const compactHeaderBase = 27

var (
	ErrSigningFailure   = errors.New("signing failed")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrRecoveryFailure  = errors.New("public key recovery failed")
)

// Signature is an ECDSA signature over secp256k1 with the recovery id that lets a
// verifier recompute the signer's public key.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte // recovery id, 0 or 1
}

// Bytes returns r || s || v.
func (s *Signature) Bytes() prt.Signature {
	var out prt.Signature
	copy(out[:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

func (s *Signature) String() string {
	b := s.Bytes()
	return "0x" + hex.EncodeToString(b[:])
}

// SignatureFromBytes parses r || s || v. A v of 27 or 28 is normalized to 0 or 1.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != len(prt.Signature{}) {
		return nil, fmt.Errorf("%w: length %d, need 65", ErrInvalidSignature, len(b))
	}
	sig := &Signature{V: b[64]}
	if sig.V >= compactHeaderBase {
		sig.V -= compactHeaderBase
	}
	if sig.V > 1 {
		return nil, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, b[64])
	}
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	return sig, nil
}

// Sign produces a deterministic (RFC 6979) low-S signature over a 32-byte digest.
func Sign(key *btcec.PrivateKey, hash prt.Hash) (*Signature, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key is nil", ErrSigningFailure)
	}

	compact := ecdsa.SignCompact(key, hash[:], false)
	if len(compact) != 65 || compact[0] < compactHeaderBase {
		return nil, fmt.Errorf("%w: unexpected compact signature", ErrSigningFailure)
	}

	sig := &Signature{V: compact[0] - compactHeaderBase}
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])
	return sig, nil
}

// VerifySignature checks sig against publicKey. The recovery id is not consulted.
func VerifySignature(publicKey *btcec.PublicKey, hash prt.Hash, sig *Signature) bool {
	if publicKey == nil || sig == nil {
		return false
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sig.R[:]); overflow || r.IsZero() {
		return false
	}
	if overflow := s.SetByteSlice(sig.S[:]); overflow || s.IsZero() {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(hash[:], publicKey)
}

// RecoverPublicKey recomputes the signer's public key from hash and sig.
func RecoverPublicKey(hash prt.Hash, sig *Signature) (*btcec.PublicKey, error) {
	if sig == nil || sig.V > 1 {
		return nil, ErrInvalidSignature
	}

	compact := make([]byte, 65)
	compact[0] = compactHeaderBase + sig.V
	copy(compact[1:33], sig.R[:])
	copy(compact[33:], sig.S[:])

	pub, _, err := ecdsa.RecoverCompact(compact, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecoveryFailure, err)
	}
	return pub, nil
}

// RecoverAddress is RecoverPublicKey followed by PublicKeyToAddress.
func RecoverAddress(hash prt.Hash, sig *Signature) (prt.Address, error) {
	pub, err := RecoverPublicKey(hash, sig)
	if err != nil {
		return prt.Address{}, err
	}
	return PublicKeyToAddress(pub), nil
}
