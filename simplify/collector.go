// Package simplify rewrites the assembly graph in place: unbranched chains
// are fused, bubbles popped and weakly supported contigs and paths removed.
// Every pass is single threaded and leaves an already simplified graph as it
// is.
package simplify

import (
	"log"
	"strconv"

	"github.com/mudesheng/gacore/asmgraph"
)

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// tipped reports whether an open end of id carries a low-support run, as
// marked by the pre-contig builder.
func tipped(g *asmgraph.Graph, id int) bool {
	h, t := g.Tip(id)
	return h > 1 || t > 1
}

// next returns the contig that the tail of x joins monogamously: x has one
// successor y and y has x as its only predecessor. Self links, hairpin folds
// and tipped contigs on either side do not count.
func next(g *asmgraph.Graph, x int) (int, bool) {
	out := g.Out(x)
	if len(out) != 1 {
		return 0, false
	}
	y := out[0]
	if abs(y) == abs(x) || tipped(g, x) || tipped(g, y) {
		return 0, false
	}
	if in := g.In(y); len(in) != 1 || in[0] != x {
		return 0, false
	}
	return y, true
}

// Chain returns the maximal monogamous run through id, in the orientation
// of id. A contig with no monogamous neighbour gives a chain of length one.
func Chain(g *asmgraph.Graph, id int) []int {
	inChain := map[int]bool{abs(id): true}
	fw := []int{id}
	for x := id; ; {
		y, ok := next(g, x)
		if !ok || inChain[abs(y)] {
			break
		}
		inChain[abs(y)] = true
		fw = append(fw, y)
		x = y
	}
	var bw []int
	for x := -id; ; {
		y, ok := next(g, x)
		if !ok || inChain[abs(y)] {
			break
		}
		inChain[abs(y)] = true
		bw = append(bw, -y)
		x = y
	}
	chain := make([]int, 0, len(bw)+len(fw))
	for i := len(bw) - 1; i >= 0; i-- {
		chain = append(chain, bw[i])
	}
	return append(chain, fw...)
}

// Collect fuses every maximal chain of two or more contigs into one new
// contig. Paths through the chain are rewritten to the new id, identical
// paths are merged. It returns the number of chains fused.
func Collect(g *asmgraph.Graph) (int, error) {
	fused := 0
	for _, id := range g.ContigIDs() {
		if g.ContigDeleted(id) {
			continue
		}
		chain := Chain(g, id)
		if len(chain) < 2 {
			continue
		}
		if _, err := Fuse(g, chain); err != nil {
			return fused, err
		}
		fused++
	}
	if fused > 0 {
		log.Printf("[Collect] fused chains:%d\n", fused)
	}
	return fused, nil
}

// Fuse replaces the contigs of chain by their concatenation and returns the
// new id. chain must be a run of linked contigs.
func Fuse(g *asmgraph.Graph, chain []int) (int, error) {
	seq, err := g.Concat(chain)
	if err != nil {
		return 0, err
	}
	var weight int64
	offsets := make(map[int]int, len(chain)) // signed id -> start in the fused contig
	pos := 0
	for _, id := range chain {
		weight += g.ContigAttr(id, asmgraph.AttrWeight)
		offsets[id] = pos
		offsets[-id] = len(seq) - pos - g.Len(id)
		pos += g.Len(id) - g.Overlap
	}
	attrs := map[string]int64{asmgraph.AttrWeight: weight}
	if h := g.ContigAttr(chain[0], asmgraph.AttrTipHead); h > 0 {
		attrs[asmgraph.AttrTipHead] = h
	}
	if t := g.ContigAttr(chain[len(chain)-1], asmgraph.AttrTipTail); t > 0 {
		attrs[asmgraph.AttrTipTail] = t
	}
	f := g.AddContig(seq, attrs)

	idx := make(map[int]int, len(chain)) // signed id -> position in chain
	for i, id := range chain {
		idx[id] = i
	}
	seen := make(map[int]bool)
	for _, id := range chain {
		for _, p := range g.PathsThrough(id) {
			if seen[p] {
				continue
			}
			seen[p] = true
			if err := rewritePath(g, p, f, chain, idx, offsets); err != nil {
				return 0, err
			}
		}
	}
	for _, id := range chain {
		g.DeleteContig(id)
	}
	return f, nil
}

// rewritePath substitutes f (or -f) for every run of consecutive chain
// members in path p.
func rewritePath(g *asmgraph.Graph, p, f int, chain []int, idx, offsets map[int]int) error {
	path := g.Path(p)
	ids := path.IDs
	var nids []int
	var notes []string
	for i := 0; i < len(ids); {
		j, fwd := idx[ids[i]]
		rj, rev := idx[-ids[i]]
		if !fwd && !rev {
			nids = append(nids, ids[i])
			i++
			continue
		}
		notes = append(notes, strconv.Itoa(ids[i])+"@"+strconv.Itoa(offsets[ids[i]]))
		i++
		if fwd {
			for i < len(ids) && j+1 < len(chain) && ids[i] == chain[j+1] {
				i, j = i+1, j+1
			}
			nids = append(nids, f)
		} else {
			for i < len(ids) && rj > 0 && ids[i] == -chain[rj-1] {
				i, rj = i+1, rj-1
			}
			nids = append(nids, -f)
		}
	}
	if len(nids) < 2 {
		g.DeletePath(p)
		return nil
	}
	if q := g.FindPath(nids); q != 0 && q != p {
		other := g.Path(q)
		asmgraph.MergeAttrs(other.Attrs, path.Attrs)
		other.Notes = append(other.Notes, path.Notes...)
		other.Notes = append(other.Notes, notes...)
		g.DeletePath(p)
		return nil
	}
	path.Notes = append(path.Notes, notes...)
	return g.SetPathIDs(p, nids)
}
