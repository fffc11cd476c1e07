package simplify

import (
	"log"

	"github.com/mudesheng/gacore/asmgraph"
)

// Cleanup deletes live contigs shorter than minLen that no path touches and
// returns how many were removed.
func Cleanup(g *asmgraph.Graph, minLen int) int {
	n := 0
	for _, id := range g.ContigIDs() {
		if g.Len(id) < minLen && len(g.PathsThrough(id)) == 0 {
			g.DeleteContig(id)
			n++
		}
	}
	if n > 0 {
		log.Printf("[Cleanup] deleted short isolated contigs:%d\n", n)
	}
	return n
}

func readSupport(p *asmgraph.Path) (int64, bool) {
	v, ok := p.Attrs[asmgraph.AttrReads]
	return v, ok
}

// supported returns the read paths of three or more contigs leaving x.
func supported(g *asmgraph.Graph, x int) []int {
	var ps []int
	for _, l := range g.Paths(x) {
		if l.End != asmgraph.Tail || len(l.IDs) < 3 {
			continue
		}
		if _, ok := readSupport(g.Path(l.Path)); ok {
			ps = append(ps, l.Path)
		}
	}
	return ps
}

// FilterPaths deletes read-supported paths with fewer than minReads reads.
// A surviving long path that is the only read path leaving a contig end is
// marked implicit; with bidirectional set, it must also be the only one
// leaving its other terminus. Link paths without read counts are never
// touched. It returns the numbers of paths deleted and newly marked.
func FilterPaths(g *asmgraph.Graph, minReads int, bidirectional bool) (deleted, implicit int) {
	for p := 1; p <= g.NumberPaths(); p++ {
		path := g.Path(p)
		if path == nil {
			continue
		}
		if v, ok := readSupport(path); ok && v < int64(minReads) {
			g.DeletePath(p)
			deleted++
		}
	}
	for _, id := range g.ContigIDs() {
		for _, x := range []int{id, -id} {
			ps := supported(g, x)
			if len(ps) != 1 {
				continue
			}
			path := g.Path(ps[0])
			if path.Attrs[asmgraph.AttrImplicit] > 0 {
				continue
			}
			if bidirectional {
				ids := path.IDs
				other := -ids[len(ids)-1]
				if ids[0] != x {
					other = ids[0]
				}
				if len(supported(g, other)) != 1 {
					continue
				}
			}
			path.Attrs[asmgraph.AttrImplicit] = 1
			implicit++
		}
	}
	if deleted > 0 || implicit > 0 {
		log.Printf("[FilterPaths] deleted:%d implicit:%d\n", deleted, implicit)
	}
	return deleted, implicit
}
