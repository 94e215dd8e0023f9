package hdkey

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HardenedKeyStart is the first hardened child index (2^31).
const HardenedKeyStart uint32 = 0x80000000

// BIP-44 constants for Ethereum externally owned accounts
const (
	Purpose  uint32 = 44
	CoinType uint32 = 60
	Account  uint32 = 0
	Change   uint32 = 0
)

const maxIndexDigits = 10

var (
	ErrInvalidPath       = errors.New("invalid derivation path")
	ErrDerivationFailure = errors.New("invalid child key")
)

type componentKind uint8

const (
	kindNormal componentKind = iota
	kindHardened
)

// Component is one step of a derivation path: Normal(i) or Hardened(i) with i < 2^31.
type Component struct {
	kind  componentKind
	index uint32
}

// Normal builds a non-hardened component.
func Normal(i uint32) (Component, error) {
	if i >= HardenedKeyStart {
		return Component{}, fmt.Errorf("%w: index %d out of range", ErrInvalidPath, i)
	}
	return Component{kind: kindNormal, index: i}, nil
}

// Hardened builds a hardened component; i is the index before the 2^31 offset.
func Hardened(i uint32) (Component, error) {
	if i >= HardenedKeyStart {
		return Component{}, fmt.Errorf("%w: index %d out of range", ErrInvalidPath, i)
	}
	return Component{kind: kindHardened, index: i}, nil
}

func (c Component) Index() uint32 { return c.index }

func (c Component) IsHardened() bool { return c.kind == kindHardened }

// Value is the index as serialized into the child HMAC (offset by 2^31 when hardened).
func (c Component) Value() uint32 {
	switch c.kind {
	case kindHardened:
		return c.index | HardenedKeyStart
	default:
		return c.index
	}
}

func (c Component) String() string {
	s := strconv.FormatUint(uint64(c.index), 10)
	if c.kind == kindHardened {
		return s + "'"
	}
	return s
}

// Path is an ordered list of components applied from the master key.
type Path []Component

// ParsePath parses "m(/index['])*". The hardened marker may be ', h or H.
// "m" alone is the master path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	segments := strings.Split(s, "/")
	if segments[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with m", ErrInvalidPath, s)
	}

	path := make(Path, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		c, err := parseComponent(seg)
		if err != nil {
			return nil, err
		}
		path = append(path, c)
	}
	return path, nil
}

func parseComponent(seg string) (Component, error) {
	digits, hardened := seg, false
	if n := len(seg); n > 0 {
		switch seg[n-1] {
		case '\'', 'h', 'H':
			digits, hardened = seg[:n-1], true
		}
	}

	if len(digits) == 0 {
		return Component{}, fmt.Errorf("%w: empty segment", ErrInvalidPath)
	}
	if len(digits) > maxIndexDigits {
		return Component{}, fmt.Errorf("%w: segment %q too long", ErrInvalidPath, seg)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Component{}, fmt.Errorf("%w: segment %q is not numeric", ErrInvalidPath, seg)
		}
	}

	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || uint32(v) >= HardenedKeyStart {
		return Component{}, fmt.Errorf("%w: segment %q out of range [0, %d)", ErrInvalidPath, seg, HardenedKeyStart)
	}

	if hardened {
		return Hardened(uint32(v))
	}
	return Normal(uint32(v))
}

// MustParsePath panics on error. Only for compile-time constant paths.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ForIndex returns the externally owned account path m/44'/60'/0'/0/i.
func ForIndex(i uint32) (Path, error) {
	last, err := Normal(i)
	if err != nil {
		return nil, err
	}
	return Path{
		{kind: kindHardened, index: Purpose},
		{kind: kindHardened, index: CoinType},
		{kind: kindHardened, index: Account},
		{kind: kindNormal, index: Change},
		last,
	}, nil
}

// PathFromValues is the inverse of Values: indexes at or above 2^31 become hardened.
func PathFromValues(values []uint32) Path {
	out := make(Path, len(values))
	for i, v := range values {
		if v >= HardenedKeyStart {
			out[i] = Component{kind: kindHardened, index: v - HardenedKeyStart}
		} else {
			out[i] = Component{kind: kindNormal, index: v}
		}
	}
	return out
}

// Values returns the wire index of every component.
func (p Path) Values() []uint32 {
	out := make([]uint32, len(p))
	for i, c := range p {
		out[i] = c.Value()
	}
	return out
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, c := range p {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}

func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Path) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePath(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
