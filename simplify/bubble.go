package simplify

import (
	"bytes"
	"log"

	"github.com/mudesheng/gacore/asmgraph"
	"github.com/pkg/errors"
)

// Rejection says why no bubble was found.
type Rejection int

const (
	Accepted Rejection = iota
	NoBranch
	TooComplex
	TooLong
	DeadEnd
	Loop
	Hairpin
	Diverged
	TooDifferent
)

var rejectionNames = [...]string{"accepted", "no branch", "too complex", "too long", "dead end", "loop", "hairpin", "diverged", "too different"}

func (r Rejection) String() string {
	if int(r) < len(rejectionNames) {
		return rejectionNames[r]
	}
	return "unknown"
}

// Bubble is a set of alternative paths from Start reconverging at End.
type Bubble struct {
	Start, End int
	Paths      [][]int
	Weights    []int64
	Best       int
}

// BubbleExplorer finds and pops bubbles. Zero MaxLen or Complexity means no
// limit.
type BubbleExplorer struct {
	// MaxLen bounds the bases a branch adds between Start and End.
	MaxLen int
	// MaxDiff bounds the edit distance between an alternative and the best
	// path.
	MaxDiff int
	// Complexity bounds the number of contigs visited by one exploration.
	Complexity int
	// WeightRatio, when positive, keeps alternatives whose weight exceeds
	// WeightRatio times the best weight.
	WeightRatio float64

	// Popped counts popped alternatives by the length of their branch.
	Popped map[int]int
}

type explorer struct {
	g       *asmgraph.Graph
	be      *BubbleExplorer
	start   int
	end     int
	visited int
	paths   [][]int
}

func (e *explorer) dfs(path []int, length int) Rejection {
	g := e.g
	for _, y := range g.Out(path[len(path)-1]) {
		e.visited++
		if e.be.Complexity > 0 && e.visited > e.be.Complexity {
			return TooComplex
		}
		if abs(y) == abs(e.start) {
			return Loop
		}
		np := append(append(make([]int, 0, len(path)+1), path...), y)
		if len(g.In(y)) >= 2 {
			if e.end != 0 && e.end != y {
				return Diverged
			}
			e.end = y
			e.paths = append(e.paths, np)
			continue
		}
		if g.IsHairpin(y) {
			return Hairpin
		}
		nl := length + g.Len(y) - g.Overlap
		if e.be.MaxLen > 0 && nl > e.be.MaxLen {
			return TooLong
		}
		if len(g.Out(y)) == 0 {
			return DeadEnd
		}
		if r := e.dfs(np, nl); r != Accepted {
			return r
		}
	}
	return Accepted
}

func (be *BubbleExplorer) branchLen(g *asmgraph.Graph, path []int) int {
	n := 0
	for _, id := range path[1 : len(path)-1] {
		n += g.Len(id) - g.Overlap
	}
	return n
}

// Explore looks for a bubble opening at the tail of x. The best path is the
// one with the largest summed weight of its inner contigs; ties go to the
// path found first.
func (be *BubbleExplorer) Explore(g *asmgraph.Graph, x int) (Bubble, Rejection, error) {
	if g.ContigDeleted(x) || len(g.Out(x)) < 2 {
		return Bubble{}, NoBranch, nil
	}
	e := &explorer{g: g, be: be, start: x}
	if r := e.dfs([]int{x}, 0); r != Accepted {
		return Bubble{}, r, nil
	}
	if len(e.paths) < 2 {
		return Bubble{}, NoBranch, nil
	}
	b := Bubble{Start: x, End: e.end, Paths: e.paths, Weights: make([]int64, len(e.paths))}
	for i, p := range b.Paths {
		for _, id := range p[1 : len(p)-1] {
			b.Weights[i] += g.ContigAttr(id, asmgraph.AttrWeight)
		}
		if b.Weights[i] > b.Weights[b.Best] {
			b.Best = i
		}
	}
	best, err := branchSeq(g, b.Paths[b.Best])
	if err != nil {
		return Bubble{}, NoBranch, err
	}
	bound := be.MaxDiff
	if bound < 0 {
		bound = 0
	}
	for i, p := range b.Paths {
		if i == b.Best {
			continue
		}
		seq, err := branchSeq(g, p)
		if err != nil {
			return Bubble{}, NoBranch, err
		}
		if editDistance(best, seq, bound) > bound {
			return Bubble{}, TooDifferent, nil
		}
	}
	return b, Accepted, nil
}

// branchSeq spells a bubble path without its flanks: the last Overlap bases
// of the start contig followed by the inner contigs. All branches share the
// same start and end, so the edit distance between two of these equals the
// distance between the full paths.
func branchSeq(g *asmgraph.Graph, path []int) ([]byte, error) {
	seq, err := g.Suffix(path[0], g.Overlap)
	if err != nil {
		return nil, err
	}
	if len(path) < 3 {
		return seq, nil
	}
	inner, err := g.Concat(path[1 : len(path)-1])
	if err != nil {
		return nil, err
	}
	if len(inner) < g.Overlap || !bytes.Equal(seq, inner[:g.Overlap]) {
		return nil, errors.Wrapf(asmgraph.ErrOverlapMismatch, "[branchSeq] %d -> %d", path[0], path[1])
	}
	return append(seq, inner[g.Overlap:]...), nil
}

// Pop deletes the alternatives of b that lose to the best path and returns
// how many were removed. Inner contigs shared with the best path are kept.
func (be *BubbleExplorer) Pop(g *asmgraph.Graph, b Bubble) int {
	if be.Popped == nil {
		be.Popped = make(map[int]int)
	}
	keep := make(map[int]bool)
	for _, id := range b.Paths[b.Best] {
		keep[abs(id)] = true
	}
	popped := 0
	for i, p := range b.Paths {
		if i == b.Best {
			continue
		}
		if be.WeightRatio > 0 && float64(b.Weights[i]) > be.WeightRatio*float64(b.Weights[b.Best]) {
			continue
		}
		blen := be.branchLen(g, p)
		if len(p) == 2 {
			if q := g.FindPath(p); q != 0 {
				g.DeletePath(q)
			}
		}
		for _, id := range p[1 : len(p)-1] {
			if !keep[abs(id)] {
				g.DeleteContig(id)
			}
		}
		be.Popped[blen]++
		popped++
	}
	return popped
}

// Run explores every live contig end and pops the bubbles found. It returns
// the number of alternatives removed.
func (be *BubbleExplorer) Run(g *asmgraph.Graph) (int, error) {
	popped := 0
	rejected := make(map[Rejection]int)
	for _, id := range g.ContigIDs() {
		for _, x := range []int{id, -id} {
			if g.ContigDeleted(x) || len(g.Out(x)) < 2 {
				continue
			}
			b, r, err := be.Explore(g, x)
			if err != nil {
				return popped, err
			}
			if r != Accepted {
				rejected[r]++
				continue
			}
			popped += be.Pop(g, b)
		}
	}
	if popped > 0 || len(rejected) > 0 {
		log.Printf("[BubbleExplorer.Run] popped:%d rejected:%v\n", popped, rejected)
	}
	return popped, nil
}

// Levenshtein returns the edit distance between two base sequences.
func Levenshtein(s, t []byte) int {
	return editDistance(s, t, -1)
}

// editDistance is Levenshtein restricted to the diagonal band |i-j| <= bound.
// Once the distance is known to exceed bound it stops and returns bound+1. A
// negative bound fills the whole table.
func editDistance(s, t []byte, bound int) int {
	if bound >= 0 && (len(s)-len(t) > bound || len(t)-len(s) > bound) {
		return bound + 1
	}
	inf := len(s) + len(t) + 1
	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
		if bound >= 0 && j > bound {
			prev[j] = inf
		}
	}
	for i := 1; i <= len(s); i++ {
		lo, hi := 1, len(t)
		if bound >= 0 {
			if i-bound > lo {
				lo = i - bound
			}
			if i+bound < hi {
				hi = i + bound
			}
		}
		if lo == 1 {
			cur[0] = i
		} else {
			cur[lo-1] = inf
		}
		rowMin := cur[lo-1]
		for j := lo; j <= hi; j++ {
			if s[i-1] == t[j-1] {
				cur[j] = prev[j-1]
			} else {
				m := prev[j]
				if cur[j-1] < m {
					m = cur[j-1]
				}
				if prev[j-1] < m {
					m = prev[j-1]
				}
				cur[j] = m + 1
			}
			if cur[j] < rowMin {
				rowMin = cur[j]
			}
		}
		if hi < len(t) {
			cur[hi+1] = inf
		}
		if bound >= 0 && rowMin > bound {
			return bound + 1
		}
		prev, cur = cur, prev
	}
	if d := prev[len(t)]; bound < 0 || d <= bound {
		return d
	}
	return bound + 1
}
