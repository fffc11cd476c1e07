// Package assemble chains the stages of the assembler core: read ingestion,
// k-mer counting, pre-contig building and the simplification passes.
package assemble

import (
	"context"
	"log"

	"github.com/mudesheng/gacore/asmgraph"
	"github.com/mudesheng/gacore/constructdbg"
	"github.com/mudesheng/gacore/kmerdb"
	"github.com/mudesheng/gacore/reads"
	"github.com/mudesheng/gacore/simplify"
	"github.com/mudesheng/gacore/utils"
	"github.com/prometheus/client_golang/prometheus"
)

// Stage names reported by StageError.
const (
	StageConfig   = "config"
	StageIngest   = "ingest"
	StageCount    = "count"
	StageBuild    = "build"
	StageSimplify = "simplify"
)

// MaxPasses bounds the simplification rounds.
const MaxPasses = 50

// StageError tells which stage of an assembly failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return "assembly failed at stage " + e.Stage + ": " + e.Err.Error()
}

// Cause lets errors.Cause reach the underlying error.
func (e *StageError) Cause() error { return e.Err }

func (e *StageError) Unwrap() error { return e.Err }

// Count streams every source through a pool of p.Threads workers into a new
// k-mer store and applies the configured or estimated threshold.
func Count(ctx context.Context, p utils.Params, srcs []reads.Source, reg prometheus.Registerer) (*kmerdb.Store, error) {
	db, err := kmerdb.New(p.Kmer)
	if err != nil {
		return nil, &StageError{StageCount, err}
	}
	pool := reads.NewPool(p.Threads)
	pool.Metrics = reads.NewMetrics(reg)
	err = pool.Run(ctx, srcs, func(b reads.Batch) error {
		for _, f := range b.Frags {
			db.AddRead(f)
		}
		return nil
	})
	if err != nil {
		return nil, &StageError{StageIngest, err}
	}
	t, auto, err := p.Threshold()
	if err != nil {
		return nil, &StageError{StageCount, err}
	}
	if auto {
		db.AutoThreshold()
	} else {
		db.SetThreshold(t)
	}
	log.Printf("[Count] distinct kmers:%d visible:%d threshold:%d\n", db.Len(), db.VisibleLen(), db.Threshold())
	return db, nil
}

// Build turns the store into the pre-contig graph.
func Build(db *kmerdb.Store, p utils.Params) (*asmgraph.Graph, error) {
	g, _, err := constructdbg.Build(db, constructdbg.Options{TipMaxLen: p.TipMaxLen})
	if err != nil {
		return nil, &StageError{StageBuild, err}
	}
	return g, nil
}

// Report counts what the simplification passes changed.
type Report struct {
	Passes       int
	Fused        int
	Popped       int
	PathsDeleted int
	Implicit     int
	Cleaned      int
	// PoppedLen counts popped alternatives by branch length.
	PoppedLen map[int]int
}

// Simplify repeats collect, bubble popping, path filtering and cleanup until
// a pass changes nothing.
func Simplify(g *asmgraph.Graph, p utils.Params) (Report, error) {
	be := &simplify.BubbleExplorer{
		MaxLen:      p.BubbleMaxLen,
		MaxDiff:     p.BubbleMaxDiff,
		Complexity:  p.BubbleComplexity,
		WeightRatio: p.BubbleWeightRatio,
	}
	var rp Report
	for rp.Passes < MaxPasses {
		rp.Passes++
		changed := 0
		n, err := simplify.Collect(g)
		if err != nil {
			return rp, &StageError{StageSimplify, err}
		}
		rp.Fused += n
		changed += n
		if n, err = be.Run(g); err != nil {
			return rp, &StageError{StageSimplify, err}
		}
		rp.Popped += n
		changed += n
		if n, err = simplify.Collect(g); err != nil {
			return rp, &StageError{StageSimplify, err}
		}
		rp.Fused += n
		changed += n
		d, i := simplify.FilterPaths(g, p.MinPathReads, true)
		rp.PathsDeleted += d
		rp.Implicit += i
		changed += d + i
		c := simplify.Cleanup(g, p.MinContigLen)
		rp.Cleaned += c
		changed += c
		if changed == 0 {
			break
		}
	}
	rp.PoppedLen = be.Popped
	log.Printf("[Simplify] passes:%d fused:%d popped:%d paths deleted:%d implicit:%d cleaned:%d contigs:%d\n",
		rp.Passes, rp.Fused, rp.Popped, rp.PathsDeleted, rp.Implicit, rp.Cleaned, len(g.ContigIDs()))
	return rp, nil
}

// Run assembles the reads of srcs. On failure no graph is returned and the
// error is a *StageError naming the failing stage.
func Run(ctx context.Context, p utils.Params, srcs []reads.Source, reg prometheus.Registerer) (*asmgraph.Graph, Report, error) {
	if err := p.Validate(); err != nil {
		return nil, Report{}, &StageError{StageConfig, err}
	}
	db, err := Count(ctx, p, srcs, reg)
	if err != nil {
		return nil, Report{}, err
	}
	g, err := Build(db, p)
	if err != nil {
		return nil, Report{}, err
	}
	rp, err := Simplify(g, p)
	if err != nil {
		return nil, rp, err
	}
	return g, rp, nil
}
