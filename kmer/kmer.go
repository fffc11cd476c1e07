// Package kmer packs fixed-length DNA windows into comparable values.
//
// Base i of a k-mer lives in word i/32, most significant bits first, so that
// comparing the words in order compares the sequences lexicographically. Bits
// past the k-mer length are always zero, which keeps == usable for equality and
// lets a Kmer serve directly as a map key.
package kmer

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/mudesheng/gacore/bnt"
	"github.com/pkg/errors"
)

const (
	// NodeMapKeyLen is the number of uint64 words backing a Kmer.
	NodeMapKeyLen = 4
	// MaxLen is the longest k-mer that can be packed.
	MaxLen = NodeMapKeyLen * bnt.NumBaseInUint64
)

var (
	ErrAmbiguous = errors.New("window contains an ambiguous base")
	ErrTooLong   = errors.New("window longer than kmer.MaxLen")
)

// Kmer is an immutable packed DNA window.
type Kmer struct {
	seq [NodeMapKeyLen]uint64
	k   uint16
}

func shiftOf(i int) uint {
	return uint(62 - (i%bnt.NumBaseInUint64)*bnt.NumBitsInBase)
}

// FromBases packs a slice of base codes. Any code outside A/C/G/T makes the
// window invalid.
func FromBases(bs []byte) (km Kmer, err error) {
	if len(bs) > MaxLen {
		return km, errors.Wrapf(ErrTooLong, "length %d", len(bs))
	}
	km.k = uint16(len(bs))
	for i, b := range bs {
		if b > bnt.T {
			return Kmer{}, errors.Wrapf(ErrAmbiguous, "position %d", i)
		}
		km.seq[i/bnt.NumBaseInUint64] |= uint64(b) << shiftOf(i)
	}
	return km, nil
}

// FromString packs an ASCII DNA string.
func FromString(s string) (Kmer, error) {
	return FromBases(bnt.FromString(s))
}

// Len returns the number of bases.
func (km Kmer) Len() int {
	return int(km.k)
}

// Nt returns the code of base i.
func (km Kmer) Nt(i int) uint8 {
	return uint8(km.seq[i/bnt.NumBaseInUint64]>>shiftOf(i)) & bnt.BaseMask
}

func (km *Kmer) setNt(i int, b uint8) {
	w, s := i/bnt.NumBaseInUint64, shiftOf(i)
	km.seq[w] = km.seq[w]&^(bnt.BaseMask<<s) | uint64(b&bnt.BaseMask)<<s
}

func (km *Kmer) clearNt(i int) {
	km.seq[i/bnt.NumBaseInUint64] &^= bnt.BaseMask << shiftOf(i)
}

// Successor drops the first base and appends b.
func (km Kmer) Successor(b uint8) Kmer {
	if km.k == 0 {
		return km
	}
	nw := (int(km.k) + bnt.NumBaseInUint64 - 1) / bnt.NumBaseInUint64
	for w := 0; w < nw; w++ {
		km.seq[w] <<= bnt.NumBitsInBase
		if w+1 < nw {
			km.seq[w] |= km.seq[w+1] >> 62
		}
	}
	km.setNt(int(km.k)-1, b)
	return km
}

// Predecessor prepends b and drops the last base.
func (km Kmer) Predecessor(b uint8) Kmer {
	if km.k == 0 {
		return km
	}
	nw := (int(km.k) + bnt.NumBaseInUint64 - 1) / bnt.NumBaseInUint64
	for w := nw - 1; w >= 0; w-- {
		km.seq[w] >>= bnt.NumBitsInBase
		if w > 0 {
			km.seq[w] |= km.seq[w-1] << 62
		}
	}
	if int(km.k) < nw*bnt.NumBaseInUint64 {
		km.clearNt(int(km.k))
	}
	km.setNt(0, b)
	return km
}

func reverseCompletUint64(bs uint64, slen int) uint64 {
	bs = ^bs
	bs = (bs&0x3333333333333333)<<2 | (bs&0xCCCCCCCCCCCCCCCC)>>2
	bs = (bs&0x0F0F0F0F0F0F0F0F)<<4 | (bs&0xF0F0F0F0F0F0F0F0)>>4
	bs = (bs&0x00FF00FF00FF00FF)<<8 | (bs&0xFF00FF00FF00FF00)>>8
	bs = (bs&0x0000FFFF0000FFFF)<<16 | (bs&0xFFFF0000FFFF0000)>>16
	bs = (bs&0x00000000FFFFFFFF)<<32 | (bs&0xFFFFFFFF00000000)>>32
	return bs << uint(64-slen*bnt.NumBitsInBase)
}

// Reverse returns the reverse complement.
func (km Kmer) Reverse() Kmer {
	rk := Kmer{k: km.k}
	if km.k == 0 {
		return rk
	}
	if km.k <= bnt.NumBaseInUint64 {
		rk.seq[0] = reverseCompletUint64(km.seq[0], int(km.k))
		return rk
	}
	kl := int(km.k)
	for i := 0; i < kl; i++ {
		rk.setNt(kl-1-i, bnt.BntRev[km.Nt(i)])
	}
	return rk
}

// Less orders k-mers by length, then lexicographically.
func (km Kmer) Less(o Kmer) bool {
	if km.k != o.k {
		return km.k < o.k
	}
	for i := range km.seq {
		if km.seq[i] != o.seq[i] {
			return km.seq[i] < o.seq[i]
		}
	}
	return false
}

// Minimal returns the smaller of the k-mer and its reverse complement.
func (km Kmer) Minimal() Kmer {
	rk := km.Reverse()
	if rk.Less(km) {
		return rk
	}
	return km
}

// IsPalindrome reports whether the k-mer equals its reverse complement.
func (km Kmer) IsPalindrome() bool {
	return km == km.Reverse()
}

// Hash is a stable xxhash over the packed words and the length.
func (km Kmer) Hash() uint64 {
	var buf [NodeMapKeyLen*8 + 2]byte
	for i, w := range km.seq {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	binary.LittleEndian.PutUint16(buf[NodeMapKeyLen*8:], km.k)
	return xxhash.Sum64(buf[:])
}

// Bases unpacks the k-mer into base codes.
func (km Kmer) Bases() []byte {
	bs := make([]byte, km.k)
	for i := range bs {
		bs[i] = km.Nt(i)
	}
	return bs
}

// Words exposes the packed representation for serialization.
func (km Kmer) Words() [NodeMapKeyLen]uint64 {
	return km.seq
}

// FromWords rebuilds a k-mer written with Words. Bits past k are cleared.
func FromWords(ws [NodeMapKeyLen]uint64, k int) (km Kmer, err error) {
	if k < 0 || k > MaxLen {
		return km, errors.Wrapf(ErrTooLong, "length %d", k)
	}
	km.seq, km.k = ws, uint16(k)
	for i := k; i < MaxLen; i++ {
		km.clearNt(i)
	}
	return km, nil
}

func (km Kmer) String() string {
	var sb strings.Builder
	sb.Grow(int(km.k))
	for i := 0; i < int(km.k); i++ {
		sb.WriteByte(bnt.BitNtCharUp[km.Nt(i)])
	}
	return sb.String()
}
