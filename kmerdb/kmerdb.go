// Package kmerdb counts canonical k-mers and hides low-count entries behind a
// mutable threshold. It is the de Bruijn graph the pre-contig builder walks.
package kmerdb

import (
	"log"
	"sort"

	"github.com/mudesheng/gacore/bnt"
	"github.com/mudesheng/gacore/kmer"
	"github.com/pkg/errors"
)

// ErrUnseenKmer is returned when a k-mer that was never counted is queried.
var ErrUnseenKmer = errors.New("kmer was never counted")

// entry.count starts at 0 on the first occurrence and grows by one for every
// later occurrence on either strand.
type entry struct {
	count uint32
	built bool
}

// Store maps every canonical k-mer to its count. It is not safe for concurrent
// use; ingestion serializes through a single consumer.
type Store struct {
	k         int
	threshold int
	entries   map[kmer.Kmer]entry
}

// New returns an empty store for k-mers of length k.
func New(k int) (*Store, error) {
	if k <= 0 || k > kmer.MaxLen {
		return nil, errors.Errorf("[kmerdb.New] kmer length %d must be in [1, %d]", k, kmer.MaxLen)
	}
	return &Store{k: k, entries: make(map[kmer.Kmer]entry, 1<<16)}, nil
}

// K returns the k-mer length.
func (s *Store) K() int {
	return s.k
}

// AddKmer records one occurrence of km (either strand).
func (s *Store) AddKmer(km kmer.Kmer) {
	ck := km.Minimal()
	if e, ok := s.entries[ck]; ok {
		e.count++
		s.entries[ck] = e
		return
	}
	s.entries[ck] = entry{}
}

// AddFragment records every length-k window of a fragment of base codes,
// skipping windows that contain an ambiguous base. A window and its reverse
// complement share one counter. It returns the number of windows recorded.
func (s *Store) AddFragment(frag []byte) (num int) {
	if len(frag) < s.k {
		return 0
	}
	var km kmer.Kmer
	valid := 0 // length of the current run of unambiguous bases
	for i, b := range frag {
		if b > bnt.T {
			valid = 0
			continue
		}
		valid++
		if valid == s.k {
			km, _ = kmer.FromBases(frag[i-s.k+1 : i+1])
		} else if valid > s.k {
			km = km.Successor(b)
		}
		if valid >= s.k {
			s.AddKmer(km)
			num++
		}
	}
	return num
}

// AddRead records a fragment and its reverse complement, which is how the
// ingestion consumer feeds reads.
func (s *Store) AddRead(frag []byte) int {
	return s.AddFragment(frag) + s.AddFragment(bnt.GetReverseCompByteArr(frag))
}

// Threshold returns the minimum count an entry needs to be visible.
func (s *Store) Threshold() int {
	return s.threshold
}

// SetThreshold changes visibility without removing entries.
func (s *Store) SetThreshold(t int) {
	s.threshold = t
}

func (s *Store) visible(e entry) bool {
	return int(e.count) >= s.threshold
}

// Contains reports whether km (either strand) is counted and visible.
func (s *Store) Contains(km kmer.Kmer) bool {
	e, ok := s.entries[km.Minimal()]
	return ok && s.visible(e)
}

// Frequency returns the count of km whatever the threshold.
func (s *Store) Frequency(km kmer.Kmer) (int, error) {
	e, ok := s.entries[km.Minimal()]
	if !ok {
		return 0, errors.Wrapf(ErrUnseenKmer, "[Frequency] %s", km)
	}
	return int(e.count), nil
}

// IsBuilt reports the scratch flag used by the pre-contig builder.
func (s *Store) IsBuilt(km kmer.Kmer) (bool, error) {
	e, ok := s.entries[km.Minimal()]
	if !ok {
		return false, errors.Wrapf(ErrUnseenKmer, "[IsBuilt] %s", km)
	}
	return e.built, nil
}

// SetBuilt sets the scratch flag of km.
func (s *Store) SetBuilt(km kmer.Kmer) error {
	ck := km.Minimal()
	e, ok := s.entries[ck]
	if !ok {
		return errors.Wrapf(ErrUnseenKmer, "[SetBuilt] %s", km)
	}
	e.built = true
	s.entries[ck] = e
	return nil
}

// ResetBuilt clears every scratch flag.
func (s *Store) ResetBuilt() {
	for km, e := range s.entries {
		if e.built {
			e.built = false
			s.entries[km] = e
		}
	}
}

// Len returns the number of distinct canonical k-mers, visible or not.
func (s *Store) Len() int {
	return len(s.entries)
}

// VisibleLen returns the number of entries passing the threshold.
func (s *Store) VisibleLen() (n int) {
	for _, e := range s.entries {
		if s.visible(e) {
			n++
		}
	}
	return n
}

// Range calls fn for every visible canonical k-mer until fn returns false.
// The order is unspecified.
func (s *Store) Range(fn func(km kmer.Kmer, count int) bool) {
	for km, e := range s.entries {
		if !s.visible(e) {
			continue
		}
		if !fn(km, int(e.count)) {
			return
		}
	}
}

// Kmers returns the visible canonical k-mers in ascending order.
func (s *Store) Kmers() []kmer.Kmer {
	arr := make([]kmer.Kmer, 0, len(s.entries))
	s.Range(func(km kmer.Kmer, _ int) bool {
		arr = append(arr, km)
		return true
	})
	sort.Slice(arr, func(i, j int) bool { return arr[i].Less(arr[j]) })
	return arr
}

// Histogram returns the count-of-counts: hist[c] is the number of distinct
// canonical k-mers whose count is c.
func (s *Store) Histogram() []int {
	maxCount := 0
	for _, e := range s.entries {
		if int(e.count) > maxCount {
			maxCount = int(e.count)
		}
	}
	hist := make([]int, maxCount+1)
	for _, e := range s.entries {
		hist[e.count]++
	}
	return hist
}

// EstimateThreshold picks the first local minimum of the histogram after the
// initial sequencing error peak. It returns 0 (keep everything) when the
// histogram has no such minimum.
func EstimateThreshold(hist []int) int {
	for c := 1; c+1 < len(hist); c++ {
		if hist[c] <= hist[c-1] && hist[c] < hist[c+1] {
			return c
		}
	}
	return 0
}

// AutoThreshold estimates and applies the threshold.
func (s *Store) AutoThreshold() int {
	hist := s.Histogram()
	t := EstimateThreshold(hist)
	log.Printf("[AutoThreshold] distinct kmers:%d estimated min kmer freq:%d\n", len(s.entries), t)
	s.SetThreshold(t)
	return t
}
