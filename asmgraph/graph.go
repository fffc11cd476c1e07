// Package asmgraph holds the assembly graph: contigs addressed by signed ids
// and the paths that link them. A positive id reads a contig as stored, the
// negated id reads its reverse complement. Contigs and paths live in arenas and
// are only soft deleted, so ids recorded elsewhere stay valid.
package asmgraph

import (
	"bytes"
	"sort"

	"github.com/mudesheng/gacore/bnt"
	"github.com/pkg/errors"
)

// ErrNoSuchContig is returned for ids outside the arena or already deleted.
var ErrNoSuchContig = errors.New("no such contig")

// ErrOverlapMismatch is returned when adjacent contigs do not share their
// Overlap bases.
var ErrOverlapMismatch = errors.New("adjacent contigs do not overlap")

// Contig attribute names shared by the builder and the simplifiers.
const (
	AttrWeight  = "weight"   // summed k-mer support
	AttrTipHead = "tip.head" // open-end run at the start of the stored strand
	AttrTipTail = "tip.tail" // open-end run at the end of the stored strand
)

// Path attribute names.
const (
	AttrReads    = "reads"    // read pairs supporting the path
	AttrMaxCov   = "maxcov"   // merged by max
	AttrImplicit = "implicit" // set by FilterPaths, merged by max
)

// End names the side of an oriented contig touched by a path.
type End int8

const (
	Head End = iota
	Tail
)

func (e End) String() string {
	if e == Head {
		return "head"
	}
	return "tail"
}

type Contig struct {
	Seq     []byte // codes of package bnt, stored strand
	Attrs   map[string]int64
	deleted bool
}

type Path struct {
	IDs     []int
	Attrs   map[string]int64
	Notes   []string // provenance, "id@offset"
	deleted bool
}

// Graph owns contigs and paths. Consecutive contigs of a path overlap by
// Overlap bases. Graph is not safe for concurrent use.
type Graph struct {
	Overlap int

	contigs []Contig // index 0 unused
	paths   []Path   // index 0 unused
	// ends maps a signed contig id x to the paths that leave x through its
	// tail, that is paths whose oriented form starts with x.
	ends map[int][]int
	// touch maps an unsigned contig id to every path containing it.
	touch map[int][]int
}

// New returns an empty graph whose contigs overlap by overlap bases.
func New(overlap int) *Graph {
	return &Graph{
		Overlap: overlap,
		contigs: make([]Contig, 1),
		paths:   make([]Path, 1),
		ends:    make(map[int][]int),
		touch:   make(map[int][]int),
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ReverseIDs returns the path read along the opposite strand.
func ReverseIDs(ids []int) []int {
	rs := make([]int, len(ids))
	for i, id := range ids {
		rs[len(ids)-1-i] = -id
	}
	return rs
}

// AddContig stores seq as a new contig and returns its positive id.
func (g *Graph) AddContig(seq []byte, attrs map[string]int64) int {
	if attrs == nil {
		attrs = make(map[string]int64)
	}
	g.contigs = append(g.contigs, Contig{Seq: seq, Attrs: attrs})
	return len(g.contigs) - 1
}

// NumberContigs returns the arena size; ids run from 1 to NumberContigs(),
// deleted ones included.
func (g *Graph) NumberContigs() int {
	return len(g.contigs) - 1
}

// NumberPaths is NumberContigs for paths.
func (g *Graph) NumberPaths() int {
	return len(g.paths) - 1
}

func (g *Graph) valid(id int) bool {
	a := abs(id)
	return a > 0 && a < len(g.contigs)
}

// ContigDeleted reports whether id is deleted. Unknown ids count as deleted.
func (g *Graph) ContigDeleted(id int) bool {
	return !g.valid(id) || g.contigs[abs(id)].deleted
}

// Contig returns the bases of id in its orientation. Negative ids get a fresh
// reverse complement, positive ids share the stored slice.
func (g *Graph) Contig(id int) ([]byte, error) {
	if g.ContigDeleted(id) {
		return nil, errors.Wrapf(ErrNoSuchContig, "[Contig] id %d", id)
	}
	seq := g.contigs[abs(id)].Seq
	if id < 0 {
		return bnt.GetReverseCompByteArr(seq), nil
	}
	return seq, nil
}

// Len returns the length of contig id, 0 when unknown.
func (g *Graph) Len(id int) int {
	if !g.valid(id) {
		return 0
	}
	return len(g.contigs[abs(id)].Seq)
}

// IsHairpin reports whether a contig equals its own reverse complement.
func (g *Graph) IsHairpin(id int) bool {
	if !g.valid(id) {
		return false
	}
	seq := g.contigs[abs(id)].Seq
	for i, j := 0, len(seq)-1; i <= j; i, j = i+1, j-1 {
		if seq[i] > bnt.T || bnt.BntRev[seq[i]] != seq[j] {
			return false
		}
	}
	return len(seq) > 0
}

// ContigIDs returns the positive ids of all live contigs.
func (g *Graph) ContigIDs() []int {
	var ids []int
	for i := 1; i < len(g.contigs); i++ {
		if !g.contigs[i].deleted {
			ids = append(ids, i)
		}
	}
	return ids
}

// ContigAttr returns a contig attribute. Tip markers follow the orientation
// of id: the head of -x is the tail of x.
func (g *Graph) ContigAttr(id int, name string) int64 {
	if !g.valid(id) {
		return 0
	}
	return g.contigs[abs(id)].Attrs[orientedAttr(id, name)]
}

func (g *Graph) SetContigAttr(id int, name string, v int64) {
	if g.valid(id) {
		g.contigs[abs(id)].Attrs[orientedAttr(id, name)] = v
	}
}

func orientedAttr(id int, name string) string {
	if id > 0 {
		return name
	}
	switch name {
	case AttrTipHead:
		return AttrTipTail
	case AttrTipTail:
		return AttrTipHead
	}
	return name
}

// Tip returns the tip markers of id in its orientation.
func (g *Graph) Tip(id int) (head, tail int64) {
	return g.ContigAttr(id, AttrTipHead), g.ContigAttr(id, AttrTipTail)
}

func removeInt(arr []int, x int) []int {
	for i, v := range arr {
		if v == x {
			return append(arr[:i], arr[i+1:]...)
		}
	}
	return arr
}

func (g *Graph) index(p int) {
	ids := g.paths[p].IDs
	g.ends[ids[0]] = append(g.ends[ids[0]], p)
	if last := -ids[len(ids)-1]; last != ids[0] {
		g.ends[last] = append(g.ends[last], p)
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		a := abs(id)
		if !seen[a] {
			seen[a] = true
			g.touch[a] = append(g.touch[a], p)
		}
	}
}

func (g *Graph) unindex(p int) {
	ids := g.paths[p].IDs
	g.ends[ids[0]] = removeInt(g.ends[ids[0]], p)
	last := -ids[len(ids)-1]
	g.ends[last] = removeInt(g.ends[last], p)
	for _, x := range []int{ids[0], last} {
		if len(g.ends[x]) == 0 {
			delete(g.ends, x)
		}
	}
	for _, id := range ids {
		a := abs(id)
		g.touch[a] = removeInt(g.touch[a], p)
	}
}

func (g *Graph) checkIDs(ids []int) error {
	if len(ids) < 2 {
		return errors.Errorf("[AddPath] path %v needs at least two contigs", ids)
	}
	for _, id := range ids {
		if g.ContigDeleted(id) {
			return errors.Wrapf(ErrNoSuchContig, "[AddPath] path %v contig %d", ids, id)
		}
	}
	return nil
}

// AddPath stores a path over live contigs and returns its id.
func (g *Graph) AddPath(ids []int, attrs map[string]int64) (int, error) {
	if err := g.checkIDs(ids); err != nil {
		return 0, err
	}
	if attrs == nil {
		attrs = make(map[string]int64)
	}
	g.paths = append(g.paths, Path{IDs: append([]int(nil), ids...), Attrs: attrs})
	p := len(g.paths) - 1
	g.index(p)
	return p, nil
}

// SetPathIDs replaces the contigs of path p.
func (g *Graph) SetPathIDs(p int, ids []int) error {
	if g.PathDeleted(p) {
		return errors.Errorf("[SetPathIDs] path %d deleted", p)
	}
	if err := g.checkIDs(ids); err != nil {
		return err
	}
	g.unindex(p)
	g.paths[p].IDs = append([]int(nil), ids...)
	g.index(p)
	return nil
}

// PathDeleted reports whether p is deleted or unknown.
func (g *Graph) PathDeleted(p int) bool {
	return p <= 0 || p >= len(g.paths) || g.paths[p].deleted
}

// Path returns path p, nil when deleted. The returned value must not be
// modified except through its Attrs and Notes.
func (g *Graph) Path(p int) *Path {
	if g.PathDeleted(p) {
		return nil
	}
	return &g.paths[p]
}

// DeletePath soft deletes p.
func (g *Graph) DeletePath(p int) {
	if g.PathDeleted(p) {
		return
	}
	g.unindex(p)
	g.paths[p].deleted = true
}

// DeleteContig soft deletes id and every path through it. It returns the
// number of paths removed.
func (g *Graph) DeleteContig(id int) int {
	if g.ContigDeleted(id) {
		return 0
	}
	a := abs(id)
	n := 0
	for _, p := range append([]int(nil), g.touch[a]...) {
		if !g.PathDeleted(p) {
			g.DeletePath(p)
			n++
		}
	}
	delete(g.touch, a)
	g.contigs[a].deleted = true
	return n
}

// PathsThrough returns the live paths containing contig id in any position.
func (g *Graph) PathsThrough(id int) []int {
	var ps []int
	for _, p := range g.touch[abs(id)] {
		if !g.PathDeleted(p) {
			ps = append(ps, p)
		}
	}
	sort.Ints(ps)
	return ps
}

// Link describes one path touching an end of a contig.
type Link struct {
	Path int
	End  End
	// Neighbor is the contig adjacent to End, in the orientation of the
	// queried id: for Tail the successor, for Head the predecessor.
	Neighbor int
	// IDs is the path oriented to leave the touched end.
	IDs []int
}

func (g *Graph) leaving(x int) []Link {
	var ls []Link
	for _, p := range g.ends[x] {
		ids := g.paths[p].IDs
		if ids[0] != x {
			ids = ReverseIDs(ids)
		}
		ls = append(ls, Link{Path: p, End: Tail, Neighbor: ids[1], IDs: ids})
	}
	return ls
}

// Paths returns every live path touching an end of id, tail links first.
func (g *Graph) Paths(id int) []Link {
	ls := g.leaving(id)
	for _, l := range g.leaving(-id) {
		l.End = Head
		l.Neighbor = -l.Neighbor
		ls = append(ls, l)
	}
	return ls
}

func distinct(ls []Link) []int {
	var ns []int
	seen := make(map[int]bool)
	for _, l := range ls {
		if !seen[l.Neighbor] {
			seen[l.Neighbor] = true
			ns = append(ns, l.Neighbor)
		}
	}
	sort.Ints(ns)
	return ns
}

// Out returns the distinct successors of id.
func (g *Graph) Out(id int) []int {
	return distinct(g.leaving(id))
}

// In returns the distinct predecessors of id, in the orientation of id.
func (g *Graph) In(id int) []int {
	ns := distinct(g.leaving(-id))
	for i := range ns {
		ns[i] = -ns[i]
	}
	sort.Ints(ns)
	return ns
}

// FindPath returns the live path equal to ids read on either strand, or 0.
func (g *Graph) FindPath(ids []int) int {
	if len(ids) < 2 {
		return 0
	}
	for _, p := range g.ends[ids[0]] {
		pids := g.paths[p].IDs
		if pids[0] != ids[0] {
			pids = ReverseIDs(pids)
		}
		if equalIDs(pids, ids) {
			return p
		}
	}
	return 0
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MergeAttrs folds src into dst: counts are summed, maxcov and implicit keep
// the larger value.
func MergeAttrs(dst, src map[string]int64) {
	for k, v := range src {
		switch k {
		case AttrMaxCov, AttrImplicit:
			if v > dst[k] {
				dst[k] = v
			}
		default:
			dst[k] += v
		}
	}
}

// Concat joins the contigs of ids, removing Overlap bases at every junction.
func (g *Graph) Concat(ids []int) ([]byte, error) {
	var seq []byte
	for i, id := range ids {
		s, err := g.Contig(id)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			seq = append(seq, s...)
			continue
		}
		if len(s) < g.Overlap || len(seq) < g.Overlap {
			return nil, errors.Errorf("[Concat] contig %d or its predecessor shorter than overlap %d", id, g.Overlap)
		}
		if !bytes.Equal(seq[len(seq)-g.Overlap:], s[:g.Overlap]) {
			return nil, errors.Wrapf(ErrOverlapMismatch, "[Concat] %d -> %d", ids[i-1], id)
		}
		seq = append(seq, s[g.Overlap:]...)
	}
	return seq, nil
}

// Suffix returns the last n bases of id in its orientation, or the whole
// contig when it is shorter. Only those n bases are complemented for a
// negative id.
func (g *Graph) Suffix(id, n int) ([]byte, error) {
	if g.ContigDeleted(id) {
		return nil, errors.Wrapf(ErrNoSuchContig, "[Suffix] id %d", id)
	}
	s := g.contigs[abs(id)].Seq
	if n > len(s) {
		n = len(s)
	}
	if id > 0 {
		return append([]byte(nil), s[len(s)-n:]...), nil
	}
	return bnt.GetReverseCompByteArr(s[:n]), nil
}
