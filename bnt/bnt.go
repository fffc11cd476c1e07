// Package bnt holds the 2-bit nucleotide encoding shared by the k-mer codec,
// the read sources and the assembly graph.
package bnt

const (
	A uint8 = 0
	C uint8 = 1
	G uint8 = 2
	T uint8 = 3
	// N marks any ambiguous symbol; a window containing it is invalid.
	N uint8 = 4

	BaseTypeNum     = 4
	NumBitsInBase   = 2
	BaseMask        = 0x3
	NumBaseInUint64 = 64 / NumBitsInBase
)

// Base2Bnt maps an ASCII letter to its code, N for everything not ACGT.
var Base2Bnt [256]uint8

// BntRev is the complement of a code. N stays N.
var BntRev = [5]uint8{T, G, C, A, N}

// BitNtCharUp is the upper case letter of a code.
var BitNtCharUp = [5]byte{'A', 'C', 'G', 'T', 'N'}

func init() {
	for i := range Base2Bnt {
		Base2Bnt[i] = N
	}
	Base2Bnt['A'], Base2Bnt['a'] = A, A
	Base2Bnt['C'], Base2Bnt['c'] = C, C
	Base2Bnt['G'], Base2Bnt['g'] = G, G
	Base2Bnt['T'], Base2Bnt['t'] = T, T
}

// Transform2Bnt converts ASCII letters into a new code slice.
func Transform2Bnt(s []byte) []byte {
	bs := make([]byte, len(s))
	for i, c := range s {
		bs[i] = Base2Bnt[c]
	}
	return bs
}

// Transform2Char converts codes into upper case letters.
func Transform2Char(bs []byte) []byte {
	s := make([]byte, len(bs))
	for i, b := range bs {
		if b > N {
			b = N
		}
		s[i] = BitNtCharUp[b]
	}
	return s
}

// FromString is Transform2Bnt for string literals.
func FromString(s string) []byte {
	return Transform2Bnt([]byte(s))
}

// GetReverseCompByteArr returns the reverse complement of a code slice.
func GetReverseCompByteArr(seq []byte) []byte {
	sl := len(seq)
	rs := make([]byte, sl)
	for i, b := range seq {
		if b > N {
			b = N
		}
		rs[sl-1-i] = BntRev[b]
	}
	return rs
}

// GetReverseCompBytes writes the reverse complement of kb into rb, growing rb
// when needed.
func GetReverseCompBytes(kb, rb []byte) []byte {
	kl := len(kb)
	if cap(rb) < kl {
		rb = make([]byte, kl)
	}
	rb = rb[:kl]
	for i := 0; i < kl; i++ {
		b := kb[i]
		if b > N {
			b = N
		}
		rb[kl-1-i] = BntRev[b]
	}
	return rb
}

// IsValid reports whether every code of seq is one of A, C, G, T.
func IsValid(seq []byte) bool {
	for _, b := range seq {
		if b > T {
			return false
		}
	}
	return true
}
