// Package constructdbg walks the k-mer store into the pre-contig graph:
// maximal unbranched runs of k-mers become contigs, adjacent runs are joined
// by two-contig paths, and short dead ends hanging off a branch are removed.
package constructdbg

import (
	"log"
	"sort"

	"github.com/mudesheng/gacore/asmgraph"
	"github.com/mudesheng/gacore/bnt"
	"github.com/mudesheng/gacore/kmer"
	"github.com/mudesheng/gacore/kmerdb"
	"github.com/pkg/errors"
)

// Options tunes the builder.
type Options struct {
	// TipMaxLen is the contig length in bases below which a dead end
	// attached to a branch is deleted, provided its open end starts with
	// low-support k-mers.
	TipMaxLen int
}

// Stats summarizes one build.
type Stats struct {
	Contigs     int
	Links       int
	Hairpins    int
	TipsDeleted int
}

type builder struct {
	db    *kmerdb.Store
	k     int
	g     *asmgraph.Graph
	opt   Options
	stats Stats
	// starts maps the first k-mer of every oriented contig to its signed id.
	starts map[kmer.Kmer]int
	// ends[c] holds the first and last k-mer of contig c as stored.
	ends [][2]kmer.Kmer
}

// Build walks every visible k-mer of db exactly once and returns the contig
// graph. Contigs overlap by k-1 bases. The built flags of db are left set.
func Build(db *kmerdb.Store, opt Options) (*asmgraph.Graph, Stats, error) {
	b := &builder{
		db:     db,
		k:      db.K(),
		g:      asmgraph.New(db.K() - 1),
		opt:    opt,
		starts: make(map[kmer.Kmer]int),
		ends:   make([][2]kmer.Kmer, 1),
	}
	for _, km := range db.Kmers() {
		built, err := db.IsBuilt(km)
		if err != nil {
			return nil, b.stats, err
		}
		if built {
			continue
		}
		if err := b.walk(km); err != nil {
			return nil, b.stats, err
		}
	}
	if err := b.link(); err != nil {
		return nil, b.stats, err
	}
	if err := b.markTips(); err != nil {
		return nil, b.stats, err
	}
	b.deleteTips()
	log.Printf("[constructdbg.Build] contigs:%d links:%d hairpins:%d deleted tips:%d\n", b.stats.Contigs, b.stats.Links, b.stats.Hairpins, b.stats.TipsDeleted)
	return b.g, b.stats, nil
}

func (b *builder) succs(km kmer.Kmer) []kmer.Kmer {
	var arr []kmer.Kmer
	for c := bnt.A; c <= bnt.T; c++ {
		if nk := km.Successor(c); b.db.Contains(nk) {
			arr = append(arr, nk)
		}
	}
	return arr
}

func (b *builder) preds(km kmer.Kmer) []kmer.Kmer {
	var arr []kmer.Kmer
	for c := bnt.A; c <= bnt.T; c++ {
		if pk := km.Predecessor(c); b.db.Contains(pk) {
			arr = append(arr, pk)
		}
	}
	return arr
}

// extend steps from cur while the run stays unbranched: cur has a single
// neighbour in direction next, that neighbour has a single neighbour back,
// is not self-complementary and has not been walked yet.
func (b *builder) extend(cur kmer.Kmer, next, back func(kmer.Kmer) []kmer.Kmer) ([]kmer.Kmer, error) {
	var run []kmer.Kmer
	for {
		ns := next(cur)
		if len(ns) != 1 {
			return run, nil
		}
		nk := ns[0]
		if nk.IsPalindrome() || len(back(nk)) != 1 {
			return run, nil
		}
		built, err := b.db.IsBuilt(nk)
		if err != nil {
			return nil, err
		}
		if built {
			return run, nil
		}
		if err := b.db.SetBuilt(nk); err != nil {
			return nil, err
		}
		run = append(run, nk)
		cur = nk
	}
}

func (b *builder) walk(seed kmer.Kmer) error {
	if err := b.db.SetBuilt(seed); err != nil {
		return err
	}
	run := []kmer.Kmer{seed}
	if !seed.IsPalindrome() {
		fw, err := b.extend(seed, b.succs, b.preds)
		if err != nil {
			return err
		}
		bw, err := b.extend(seed, b.preds, b.succs)
		if err != nil {
			return err
		}
		for i, j := 0, len(bw)-1; i < j; i, j = i+1, j-1 {
			bw[i], bw[j] = bw[j], bw[i]
		}
		run = append(append(bw, seed), fw...)
	} else {
		b.stats.Hairpins++
	}

	seq := run[0].Bases()
	var weight int64
	for i, km := range run {
		if i > 0 {
			seq = append(seq, km.Nt(b.k-1))
		}
		f, err := b.db.Frequency(km)
		if err != nil {
			return err
		}
		weight += int64(f)
	}
	id := b.g.AddContig(seq, map[string]int64{asmgraph.AttrWeight: weight})
	first, last := run[0], run[len(run)-1]
	b.ends = append(b.ends, [2]kmer.Kmer{first, last})
	b.starts[first] = id
	if rl := last.Reverse(); rl != first {
		b.starts[rl] = -id
	}
	b.stats.Contigs++
	return nil
}

// lastKmer returns the final k-mer of contig id read in its orientation.
func (b *builder) lastKmer(id int) kmer.Kmer {
	if id > 0 {
		return b.ends[id][1]
	}
	return b.ends[-id][0].Reverse()
}

func (b *builder) hairpin(id int) bool {
	a := id
	if a < 0 {
		a = -a
	}
	return b.ends[a][0] == b.ends[a][1] && b.ends[a][0].IsPalindrome()
}

// norm reads a hairpin contig on its stored strand, both strands being the
// same bases.
func (b *builder) norm(id int) int {
	if id < 0 && b.hairpin(id) {
		return -id
	}
	return id
}

func (b *builder) link() error {
	seen := make(map[[2]int]bool)
	for c := 1; c < len(b.ends); c++ {
		for _, x := range []int{c, -c} {
			if x < 0 && b.hairpin(c) {
				continue
			}
			for _, nk := range b.succs(b.lastKmer(x)) {
				y, ok := b.starts[nk]
				if !ok {
					return errors.Errorf("[constructdbg.link] successor %s of contig %d starts no contig", nk, x)
				}
				fw := [2]int{b.norm(x), b.norm(y)}
				rv := [2]int{b.norm(-y), b.norm(-x)}
				if seen[fw] || seen[rv] {
					continue
				}
				seen[fw] = true
				if _, err := b.g.AddPath(fw[:], nil); err != nil {
					return err
				}
				b.stats.Links++
			}
		}
	}
	return nil
}

// singleton is the count of a k-mer seen in one read only.
const singleton = 1

// markTips sets the tip markers of every open end: 1 plus the number of
// k-mers, counted from that end, that are singletons or do not exceed the
// threshold.
func (b *builder) markTips() error {
	for c := 1; c < len(b.ends); c++ {
		for _, x := range []int{c, -c} {
			if len(b.g.Out(x)) > 0 {
				continue
			}
			run, err := b.lowRun(x)
			if err != nil {
				return err
			}
			b.g.SetContigAttr(x, asmgraph.AttrTipTail, int64(run+1))
		}
	}
	return nil
}

func (b *builder) lowRun(x int) (int, error) {
	seq, err := b.g.Contig(x)
	if err != nil {
		return 0, err
	}
	run := 0
	for end := len(seq); end >= b.k; end-- {
		km, err := kmer.FromBases(seq[end-b.k : end])
		if err != nil {
			return 0, err
		}
		f, err := b.db.Frequency(km)
		if err != nil {
			return 0, err
		}
		if f > b.db.Threshold() && f > singleton {
			break
		}
		run++
	}
	return run, nil
}

// tipBranch reports whether x is a dead end whose other end joins a branch,
// and returns the tip marker of its open end. Isolated contigs and contigs
// linked on both ends are not dead ends.
func (b *builder) tipBranch(x int) (int64, bool) {
	g := b.g
	if len(g.Out(x)) > 0 && len(g.In(x)) > 0 || len(g.Out(x)) == 0 && len(g.In(x)) == 0 {
		return 0, false
	}
	if len(g.Out(x)) == 0 {
		x = -x
	}
	// x is open at its head and linked at its tail
	for _, s := range g.Out(x) {
		if len(g.In(s)) >= 2 {
			head, _ := g.Tip(x)
			return head, true
		}
	}
	return 0, false
}

func (b *builder) deleteTips() {
	if b.opt.TipMaxLen <= 0 {
		return
	}
	var cands []int
	for _, id := range b.g.ContigIDs() {
		if b.g.Len(id) >= b.opt.TipMaxLen {
			continue
		}
		if marker, ok := b.tipBranch(id); ok && marker > 1 {
			cands = append(cands, id)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return b.g.ContigAttr(cands[i], asmgraph.AttrWeight) < b.g.ContigAttr(cands[j], asmgraph.AttrWeight)
	})
	for _, id := range cands {
		// an earlier deletion may have left id as the only branch
		if _, ok := b.tipBranch(id); !ok {
			continue
		}
		b.g.DeleteContig(id)
		b.stats.TipsDeleted++
	}
}
