// Package reads turns sequencing libraries into fragments of base codes and
// merges many sources into one stream through a bounded worker pool.
package reads

import (
	"io"

	"github.com/mudesheng/gacore/bnt"
)

// Fragment is a DNA fragment over the code alphabet of package bnt
// (A, C, G, T and N for anything ambiguous).
type Fragment []byte

// Source yields reads. Each call to Next returns one read: a single fragment
// for single-end data, two or three for paired, mate-pair and 454 libraries.
// Next returns io.EOF once the data is exhausted.
type Source interface {
	Next() ([]Fragment, error)
	Reset() error
	Close() error
}

// SliceSource serves reads from memory.
type SliceSource struct {
	Reads [][]Fragment
	pos   int
}

// NewSliceSource builds a single-end source from ASCII sequences.
func NewSliceSource(seqs ...string) *SliceSource {
	ss := &SliceSource{}
	for _, s := range seqs {
		ss.Reads = append(ss.Reads, []Fragment{bnt.FromString(s)})
	}
	return ss
}

func (ss *SliceSource) Next() ([]Fragment, error) {
	if ss.pos >= len(ss.Reads) {
		return nil, io.EOF
	}
	r := ss.Reads[ss.pos]
	ss.pos++
	return r, nil
}

func (ss *SliceSource) Reset() error {
	ss.pos = 0
	return nil
}

func (ss *SliceSource) Close() error {
	return nil
}

func reverseFragment(f Fragment) Fragment {
	return bnt.GetReverseCompByteArr(f)
}
