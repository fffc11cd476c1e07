package asmgraph

import (
	"bytes"
	"sort"
	"strings"

	"github.com/mudesheng/gacore/bnt"
)

func lessIDs(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

type canonContig struct {
	old  int // signed: negative when the reverse strand is stored
	seq  []byte
	attr map[string]int64
	ctx  []string // paths through the contig spelled by bases, sorted
}

func lessStrings(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func lessAttrs(a, b map[string]int64) bool {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		va, oka := a[k]
		vb, okb := b[k]
		if oka != okb {
			return okb
		}
		if va != vb {
			return va < vb
		}
	}
	return false
}

// pathContext spells every live path through id by the bases of its
// contigs, with id itself starred, on whichever strand sorts first.
func (g *Graph) pathContext(id int) []string {
	var ctx []string
	for _, p := range g.touch[id] {
		if g.PathDeleted(p) {
			continue
		}
		ids := g.paths[p].IDs
		fw, rv := g.spell(ids, id), g.spell(ReverseIDs(ids), id)
		if rv < fw {
			fw = rv
		}
		ctx = append(ctx, fw)
	}
	sort.Strings(ctx)
	return ctx
}

func (g *Graph) spell(ids []int, self int) string {
	var sb strings.Builder
	for i, x := range ids {
		if i > 0 {
			sb.WriteByte('|')
		}
		if abs(x) == self {
			sb.WriteByte('*')
		}
		s, _ := g.Contig(x)
		sb.Write(bnt.Transform2Char(s))
	}
	return sb.String()
}

type canonContigs []canonContig

func (cs canonContigs) Len() int      { return len(cs) }
func (cs canonContigs) Swap(i, j int) { cs[i], cs[j] = cs[j], cs[i] }
func (cs canonContigs) Less(i, j int) bool {
	if len(cs[i].seq) != len(cs[j].seq) {
		return len(cs[i].seq) > len(cs[j].seq)
	}
	if c := bytes.Compare(cs[i].seq, cs[j].seq); c != 0 {
		return c < 0
	}
	if lessAttrs(cs[i].attr, cs[j].attr) {
		return true
	}
	if lessAttrs(cs[j].attr, cs[i].attr) {
		return false
	}
	if lessStrings(cs[i].ctx, cs[j].ctx) {
		return true
	}
	if lessStrings(cs[j].ctx, cs[i].ctx) {
		return false
	}
	return abs(cs[i].old) < abs(cs[j].old)
}

// Canonicalize returns a compacted copy of g in a reproducible order. Every
// contig is stored on the strand whose bases sort first, contigs are numbered
// longest first then by bases, every path is read on the strand whose ids sort
// first and paths are sorted by ids. Contigs with equal bases are ordered by
// their attributes, then by the bases of the paths through them. Two graphs
// holding the same contigs and paths under different numbering or polarity
// give identical copies, except when duplicate contigs also agree on all of
// that and are told apart only by how paths join them to each other. The map
// sends old signed ids to new signed ids.
func Canonicalize(g *Graph) (*Graph, map[int]int) {
	var cs canonContigs
	for _, id := range g.ContigIDs() {
		c := g.contigs[id]
		cc := canonContig{old: id, seq: c.Seq, attr: make(map[string]int64, len(c.Attrs))}
		if rc := bnt.GetReverseCompByteArr(c.Seq); bytes.Compare(rc, c.Seq) < 0 {
			cc.old, cc.seq = -id, rc
		}
		for k, v := range c.Attrs {
			cc.attr[orientedAttr(cc.old, k)] = v
		}
		cc.ctx = g.pathContext(id)
		cs = append(cs, cc)
	}
	sort.Sort(cs)

	ng := New(g.Overlap)
	idMap := make(map[int]int, 2*len(cs))
	for _, cc := range cs {
		nid := ng.AddContig(append([]byte(nil), cc.seq...), cc.attr)
		if cc.old < 0 {
			nid = -nid
		}
		idMap[abs(cc.old)] = nid
		idMap[-abs(cc.old)] = -nid
	}

	var ps []Path
	for p := 1; p < len(g.paths); p++ {
		if g.PathDeleted(p) {
			continue
		}
		op := g.paths[p]
		ids := make([]int, len(op.IDs))
		for i, id := range op.IDs {
			ids[i] = idMap[id]
		}
		if rs := ReverseIDs(ids); lessIDs(rs, ids) {
			ids = rs
		}
		np := Path{IDs: ids, Attrs: make(map[string]int64, len(op.Attrs)), Notes: append([]string(nil), op.Notes...)}
		for k, v := range op.Attrs {
			np.Attrs[k] = v
		}
		ps = append(ps, np)
	}
	sort.SliceStable(ps, func(i, j int) bool { return lessIDs(ps[i].IDs, ps[j].IDs) })
	for _, p := range ps {
		ng.paths = append(ng.paths, p)
		ng.index(len(ng.paths) - 1)
	}
	return ng, idMap
}
