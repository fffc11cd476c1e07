package kmerdb

import (
	"bytes"
	"reflect"
	"sort"
	"testing"

	"github.com/mudesheng/gacore/bnt"
	"github.com/mudesheng/gacore/kmer"
	"github.com/pkg/errors"
)

func mustKmer(t *testing.T, s string) kmer.Kmer {
	t.Helper()
	km, err := kmer.FromString(s)
	if err != nil {
		t.Fatalf("kmer %s: %v", s, err)
	}
	return km
}

func buildStore(t *testing.T, k int, reads ...string) *Store {
	t.Helper()
	s, err := New(k)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range reads {
		s.AddRead(bnt.FromString(r))
	}
	return s
}

func visibleSet(s *Store) []string {
	var arr []string
	for _, km := range s.Kmers() {
		arr = append(arr, km.String())
	}
	sort.Strings(arr)
	return arr
}

func TestScenarioFrequencies(t *testing.T) {
	s := buildStore(t, 5, "AAACC", "AAACC", "ATACC")
	s.SetThreshold(0)
	tests := []struct {
		kmer string
		want int
	}{
		{"AAACC", 3},
		{"GGTTT", 3},
		{"ATACC", 1},
		{"GGTAT", 1},
	}
	for _, tt := range tests {
		got, err := s.Frequency(mustKmer(t, tt.kmer))
		if err != nil {
			t.Fatalf("Frequency(%s) err: %v", tt.kmer, err)
		}
		if got != tt.want {
			t.Errorf("Frequency(%s) = %d, want %d", tt.kmer, got, tt.want)
		}
	}
	s.SetThreshold(3)
	if !s.Contains(mustKmer(t, "AAACC")) || s.Contains(mustKmer(t, "ATACC")) {
		t.Errorf("threshold 3: visible = %v, want only AAACC", visibleSet(s))
	}
	if got := visibleSet(s); !reflect.DeepEqual(got, []string{"AAACC"}) {
		t.Errorf("visible set %v", got)
	}
}

func TestUnseenKmerFails(t *testing.T) {
	s := buildStore(t, 5, "AAACC")
	km := mustKmer(t, "CCCCC")
	if _, err := s.Frequency(km); errors.Cause(err) != ErrUnseenKmer {
		t.Errorf("Frequency of unseen kmer err = %v", err)
	}
	if _, err := s.IsBuilt(km); errors.Cause(err) != ErrUnseenKmer {
		t.Errorf("IsBuilt of unseen kmer err = %v", err)
	}
	if err := s.SetBuilt(km); errors.Cause(err) != ErrUnseenKmer {
		t.Errorf("SetBuilt of unseen kmer err = %v", err)
	}
	seen := mustKmer(t, "GGTTT")
	if err := s.SetBuilt(seen); err != nil {
		t.Fatal(err)
	}
	if b, _ := s.IsBuilt(mustKmer(t, "AAACC")); !b {
		t.Errorf("built flag not shared between strands")
	}
	s.ResetBuilt()
	if b, _ := s.IsBuilt(seen); b {
		t.Errorf("ResetBuilt left flag set")
	}
}

func TestAmbiguousWindowsSkipped(t *testing.T) {
	s, _ := New(3)
	if n := s.AddFragment(bnt.FromString("ACGNACGT")); n != 3 {
		t.Errorf("counted %d windows, want 3", n)
	}
	if f, _ := s.Frequency(mustKmer(t, "ACG")); f != 2 {
		t.Errorf("ACG/CGT frequency %d, want 2", f)
	}
	if s.Contains(mustKmer(t, "CGA")) {
		t.Errorf("window spanning N was counted")
	}
}

func TestThresholdMonotone(t *testing.T) {
	s := buildStore(t, 4, "ACGTTGCAAC", "ACGTTGCAAC", "ACGTTGCAAC", "TTGCAGGA", "TTGCAGGA", "CCCATTA")
	s.SetThreshold(1)
	base := visibleSet(s)
	for t1 := 1; t1 < 8; t1++ {
		s.SetThreshold(t1)
		low := visibleSet(s)
		s.SetThreshold(t1 + 1)
		high := visibleSet(s)
		in := map[string]bool{}
		for _, k := range low {
			in[k] = true
		}
		for _, k := range high {
			if !in[k] {
				t.Errorf("%s visible at %d but not at %d", k, t1+1, t1)
			}
		}
	}
	s.SetThreshold(1)
	if got := visibleSet(s); !reflect.DeepEqual(got, base) {
		t.Errorf("restoring threshold changed visible set: %v != %v", got, base)
	}
}

func TestEstimateThreshold(t *testing.T) {
	tests := []struct {
		name string
		hist []int
		want int
	}{
		{"error peak then genome peak", []int{0, 900, 300, 40, 10, 60, 200, 80, 5}, 4},
		{"monotone", []int{0, 50, 20, 10, 3}, 0},
		{"empty", nil, 0},
		{"flat valley", []int{0, 100, 10, 10, 30}, 3},
		{"valley at one", []int{80, 5, 40, 12}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateThreshold(tt.hist); got != tt.want {
				t.Errorf("EstimateThreshold(%v) = %d, want %d", tt.hist, got, tt.want)
			}
		})
	}
}

func TestHistogram(t *testing.T) {
	s := buildStore(t, 5, "AAACC", "AAACC", "ATACC")
	if got, want := s.Histogram(), []int{0, 1, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Histogram() = %v, want %v", got, want)
	}
}

func TestSnapshot(t *testing.T) {
	s := buildStore(t, 33, "ACGTTGCAACGTTGCAACGTTGCAACGTTGCAACGTAGGA")
	s.SetThreshold(2)
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	r, err := ReadStore(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if r.K() != 33 || r.Threshold() != 2 || r.Len() != s.Len() {
		t.Fatalf("restored k:%d threshold:%d len:%d", r.K(), r.Threshold(), r.Len())
	}
	for _, km := range s.Kmers() {
		a, _ := s.Frequency(km)
		b, err := r.Frequency(km)
		if err != nil || a != b {
			t.Errorf("%s: frequency %d restored as %d (%v)", km, a, b, err)
		}
	}
}

func Benchmark_AddFragment(b *testing.B) {
	s, _ := New(31)
	read := bnt.FromString("ACGTTGCAACGTAGGATTACAGATTACAGGGCCCATTAGACATTTAGACAGATTTTACAGACCCAGATAAA")
	for i := 0; i < b.N; i++ {
		s.AddFragment(read)
	}
}
