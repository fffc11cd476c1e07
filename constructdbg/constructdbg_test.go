package constructdbg

import (
	"reflect"
	"testing"

	"github.com/mudesheng/gacore/asmgraph"
	"github.com/mudesheng/gacore/bnt"
	"github.com/mudesheng/gacore/kmer"
	"github.com/mudesheng/gacore/kmerdb"
)

const (
	chainSeq = "GCTAAAGACAATTACATAACATACACGTCAGCACGAAACT"
	// shares the first 25 bases with chainSeq, then runs into a dead end
	branchSeq = "GCTAAAGACAATTACATAACATACATGTTGGCCC"
)

func storeOf(t *testing.T, k, threshold int, reads ...string) *kmerdb.Store {
	t.Helper()
	db, err := kmerdb.New(k)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range reads {
		db.AddRead(bnt.FromString(r))
	}
	db.SetThreshold(threshold)
	return db
}

func seqOf(t *testing.T, g *asmgraph.Graph, id int) string {
	t.Helper()
	s, err := g.Contig(id)
	if err != nil {
		t.Fatal(err)
	}
	return string(bnt.Transform2Char(s))
}

func chainReads() []string {
	return []string{chainSeq, chainSeq, chainSeq, chainSeq, chainSeq, branchSeq}
}

func TestBuildBranch(t *testing.T) {
	db := storeOf(t, 11, 0, chainReads()...)
	g, st, err := Build(db, Options{TipMaxLen: 19})
	if err != nil {
		t.Fatal(err)
	}
	if st.Contigs != 3 || st.Links != 2 || st.TipsDeleted != 0 {
		t.Fatalf("stats %+v", st)
	}
	want := []string{
		"GCTAAAGACAATTACATAACATACA",
		"ATAACATACACGTCAGCACGAAACT",
		"ATAACATACATGTTGGCCC",
	}
	for i, w := range want {
		if got := seqOf(t, g, i+1); got != w {
			t.Errorf("contig %d = %s, want %s", i+1, got, w)
		}
	}
	if got := g.Out(1); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("Out(1) = %v", got)
	}
	if w := g.ContigAttr(1, asmgraph.AttrWeight); w != 15*11 {
		t.Errorf("weight of contig 1 = %d, want %d", w, 15*11)
	}
	// the branch k-mers are singletons
	if h, tl := g.Tip(3); h != 0 || tl != 10 {
		t.Errorf("Tip(3) = %d,%d want 0,10", h, tl)
	}
	if h, tl := g.Tip(-1); h != 0 || tl != 1 {
		t.Errorf("Tip(-1) = %d,%d want 0,1", h, tl)
	}
}

func TestShortTipDeleted(t *testing.T) {
	db := storeOf(t, 11, 0, chainReads()...)
	g, st, err := Build(db, Options{TipMaxLen: 20})
	if err != nil {
		t.Fatal(err)
	}
	if st.TipsDeleted != 1 || !g.ContigDeleted(3) {
		t.Fatalf("tip not deleted: %+v", st)
	}
	if got := g.Out(1); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Out(1) after tip removal = %v", got)
	}
	if g.ContigDeleted(1) || g.ContigDeleted(2) {
		t.Error("chain contig deleted")
	}
}

func TestSupportedDeadEndKept(t *testing.T) {
	rs := append(chainReads(), branchSeq, branchSeq)
	db := storeOf(t, 11, 0, rs...)
	g, st, err := Build(db, Options{TipMaxLen: 100})
	if err != nil {
		t.Fatal(err)
	}
	if st.TipsDeleted != 0 || g.ContigDeleted(2) || g.ContigDeleted(3) {
		t.Fatalf("supported dead end deleted: %+v", st)
	}
	if _, tl := g.Tip(3); tl != 1 {
		t.Errorf("tail marker of supported branch = %d, want 1", tl)
	}
}

func TestLowSupportTipMarker(t *testing.T) {
	// branch k-mers have count 1, the chain 9 or 11
	db := storeOf(t, 11, 1, chainReads()...)
	g, _, err := Build(db, Options{TipMaxLen: 19})
	if err != nil {
		t.Fatal(err)
	}
	if _, tl := g.Tip(3); tl != 10 {
		t.Errorf("tail marker of low support branch = %d, want 10", tl)
	}
	if _, tl := g.Tip(2); tl != 1 {
		t.Errorf("tail marker of supported end = %d, want 1", tl)
	}
}

func TestBuildSingleRead(t *testing.T) {
	db := storeOf(t, 11, 0, chainSeq)
	g, st, err := Build(db, Options{TipMaxLen: 100})
	if err != nil {
		t.Fatal(err)
	}
	if st.Contigs != 1 || st.Links != 0 {
		t.Fatalf("stats %+v", st)
	}
	if seqOf(t, g, 1) != chainSeq && seqOf(t, g, -1) != chainSeq {
		t.Errorf("contig %s does not spell the read", seqOf(t, g, 1))
	}
	// every k-mer walked once
	built := 0
	db.Range(func(km kmer.Kmer, _ int) bool {
		if ok, _ := db.IsBuilt(km); ok {
			built++
		}
		return true
	})
	if built != db.VisibleLen() {
		t.Errorf("built %d of %d k-mers", built, db.VisibleLen())
	}
}

func TestBuildCycle(t *testing.T) {
	// a circular genome: the read wraps around by k-1 bases
	circ := "ACGGTCAATGCCTTAGA"
	db := storeOf(t, 7, 0, circ+circ[:6])
	g, st, err := Build(db, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Contigs != 1 || st.Links != 1 {
		t.Fatalf("stats %+v", st)
	}
	if got := g.Out(1); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Out(1) = %v, want self loop", got)
	}
	if g.Len(1) != len(circ)+6 {
		t.Errorf("cycle contig length %d", g.Len(1))
	}
}

func TestBuildHairpin(t *testing.T) {
	// ACGT is its own reverse complement
	db := storeOf(t, 4, 0, "GGTTACGTCC")
	g, st, err := Build(db, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Contigs != 3 || st.Links != 2 || st.Hairpins != 1 {
		t.Fatalf("stats %+v", st)
	}
	for id, want := range map[int]string{1: "CGTAACC", 2: "ACGT", 3: "CGTCC"} {
		if got := seqOf(t, g, id); got != want {
			t.Errorf("contig %d = %s, want %s", id, got, want)
		}
	}
	if !g.IsHairpin(2) {
		t.Error("contig 2 is not a hairpin")
	}
	for x, want := range map[int][]int{-1: {2}, 2: {3}, -2: {1}, -3: {-2}} {
		if got := g.Out(x); !reflect.DeepEqual(got, want) {
			t.Errorf("Out(%d) = %v, want %v", x, got, want)
		}
	}
	if g.FindPath([]int{-1, 2}) == 0 || g.FindPath([]int{2, 3}) == 0 {
		t.Error("hairpin links missing")
	}
}

func TestBuildFold(t *testing.T) {
	// the read runs into its own reverse complement: AACGT is followed by ACGTT
	db := storeOf(t, 5, 0, "GGCAACGTT")
	g, st, err := Build(db, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Contigs != 1 || st.Links != 1 || st.Hairpins != 0 {
		t.Fatalf("stats %+v", st)
	}
	if got := seqOf(t, g, 1); got != "GGCAACGT" {
		t.Errorf("contig 1 = %s", got)
	}
	if got := g.Out(1); !reflect.DeepEqual(got, []int{-1}) {
		t.Errorf("Out(1) = %v, want the fold [-1]", got)
	}
}

func Benchmark_Build(b *testing.B) {
	db, _ := kmerdb.New(11)
	for i := 0; i < 5; i++ {
		db.AddRead(bnt.FromString(chainSeq))
	}
	db.AddRead(bnt.FromString(branchSeq))
	for i := 0; i < b.N; i++ {
		db.ResetBuilt()
		Build(db, Options{TipMaxLen: 20})
	}
}
