package vault

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Speck128/256: 128-bit block, 256-bit key, 34 rounds.
const (
	speckBlockSize = 16
	speckKeySize   = 32
	speckRounds    = 34
)

type speckCipher struct {
	rk [speckRounds]uint64
}

// newSpeck returns a Speck128/256 cipher.Block. Words are loaded little-endian, the
// first eight bytes of a block being y and the last eight x.
func newSpeck(key []byte) (cipher.Block, error) {
	if len(key) != speckKeySize {
		return nil, fmt.Errorf("speck: invalid key size %d", len(key))
	}

	c := &speckCipher{}
	a := binary.LittleEndian.Uint64(key[0:8])
	l := [3]uint64{
		binary.LittleEndian.Uint64(key[8:16]),
		binary.LittleEndian.Uint64(key[16:24]),
		binary.LittleEndian.Uint64(key[24:32]),
	}
	for i := 0; i < speckRounds; i++ {
		c.rk[i] = a
		j := i % 3
		l[j], a = speckRound(l[j], a, uint64(i))
	}
	return c, nil
}

func speckRound(x, y, k uint64) (uint64, uint64) {
	x = (bits.RotateLeft64(x, -8) + y) ^ k
	y = bits.RotateLeft64(y, 3) ^ x
	return x, y
}

func speckUnround(x, y, k uint64) (uint64, uint64) {
	y = bits.RotateLeft64(y^x, -3)
	x = bits.RotateLeft64((x^k)-y, 8)
	return x, y
}

func (c *speckCipher) BlockSize() int { return speckBlockSize }

func (c *speckCipher) encryptWords(x, y uint64) (uint64, uint64) {
	for i := 0; i < speckRounds; i++ {
		x, y = speckRound(x, y, c.rk[i])
	}
	return x, y
}

func (c *speckCipher) decryptWords(x, y uint64) (uint64, uint64) {
	for i := speckRounds - 1; i >= 0; i-- {
		x, y = speckUnround(x, y, c.rk[i])
	}
	return x, y
}

func (c *speckCipher) Encrypt(dst, src []byte) {
	if len(src) < speckBlockSize || len(dst) < speckBlockSize {
		panic("speck: input not full block")
	}
	y := binary.LittleEndian.Uint64(src[0:8])
	x := binary.LittleEndian.Uint64(src[8:16])
	x, y = c.encryptWords(x, y)
	binary.LittleEndian.PutUint64(dst[0:8], y)
	binary.LittleEndian.PutUint64(dst[8:16], x)
}

func (c *speckCipher) Decrypt(dst, src []byte) {
	if len(src) < speckBlockSize || len(dst) < speckBlockSize {
		panic("speck: input not full block")
	}
	y := binary.LittleEndian.Uint64(src[0:8])
	x := binary.LittleEndian.Uint64(src[8:16])
	x, y = c.decryptWords(x, y)
	binary.LittleEndian.PutUint64(dst[0:8], y)
	binary.LittleEndian.PutUint64(dst[8:16], x)
}
