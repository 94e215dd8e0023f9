package protocol

const (
	AddressLength = 20
	HashLength    = 32
)

type Address [AddressLength]byte
type Hash [HashLength]byte

// Signature is the 65-byte compact form r || s || v, v being the recovery id (0 or 1).
type Signature [65]byte
