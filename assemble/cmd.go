package assemble

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/jwaldrip/odin/cli"
	"github.com/mudesheng/gacore/asmgraph"
	"github.com/mudesheng/gacore/kmerdb"
	"github.com/mudesheng/gacore/reads"
	"github.com/mudesheng/gacore/utils"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry collects the metrics of the subcommands; the main package serves it.
var Registry = prometheus.NewRegistry()

// Output file names below the -p prefix.
func kmerdbFn(prefix string) string  { return prefix + ".kmerdb.zst" }
func graphFn(prefix string) string   { return prefix + ".graph.zst" }
func smfyFn(prefix string) string    { return prefix + ".smfy.graph.zst" }
func contigsFn(prefix string) string { return prefix + ".contigs.fa" }

// setup reads the global flags and parameters, applies the int overrides
// named in flags and starts the cpu profile when asked for. The returned
// function stops the profile.
func setup(c cli.Command, name string, flags ...string) (utils.ArgsOpt, utils.Params, func()) {
	opt, suc := utils.CheckGlobalArgs(c.Parent())
	if !suc {
		log.Fatalf("[%s] check global arguments error, opt:%v\n", name, opt)
	}
	p, err := opt.Params()
	if err != nil {
		log.Fatalf("[%s] parameters: %v\n", name, err)
	}
	dsts := map[string]*int{
		"TipMaxLen":    &p.TipMaxLen,
		"MinPathReads": &p.MinPathReads,
		"MinContigLen": &p.MinContigLen,
	}
	for _, flag := range flags {
		utils.OverrideInt(c, flag, dsts[flag])
	}
	if err := p.Validate(); err != nil {
		log.Fatalf("[%s] parameters: %v\n", name, err)
	}
	fmt.Printf("[%s] opt:%+v params:%+v\n", name, opt, p)
	runtime.GOMAXPROCS(p.Threads)
	stop := func() {}
	if opt.Cpuprofile != "" {
		fp, err := os.Create(opt.Prefix + "." + name + "." + opt.Cpuprofile)
		if err != nil {
			log.Fatalf("[%s] create cpuprofile file: %v\n", name, err)
		}
		pprof.StartCPUProfile(fp)
		stop = func() {
			pprof.StopCPUProfile()
			fp.Close()
		}
	}
	return opt, p, stop
}

func openSources(cfgFn string) []reads.Source {
	cfg, err := utils.ParseCfg(cfgFn)
	if err != nil {
		log.Fatalf("[openSources] %v\n", err)
	}
	srcs, err := cfg.OpenLibs()
	if err != nil {
		log.Fatalf("[openSources] %v\n", err)
	}
	return srcs
}

func closeSources(srcs []reads.Source) {
	for _, s := range srcs {
		if err := s.Close(); err != nil {
			log.Printf("[closeSources] %v\n", err)
		}
	}
}

// interruptible cancels the returned context on SIGINT.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func writeOutputs(g *asmgraph.Graph, fn, prefix string, p utils.Params, dot bool) {
	if err := g.Save(fn); err != nil {
		log.Fatalf("[writeOutputs] %v\n", err)
	}
	if dot {
		dotFn := fn + ".dot"
		fp, err := os.Create(dotFn)
		if err != nil {
			log.Fatalf("[writeOutputs] create file: %s failed, err: %v\n", dotFn, err)
		}
		if err := g.WriteDot(fp); err != nil {
			log.Fatalf("[writeOutputs] %v\n", err)
		}
		fp.Close()
	}
	fp, err := os.Create(contigsFn(prefix))
	if err != nil {
		log.Fatalf("[writeOutputs] create file: %s failed, err: %v\n", contigsFn(prefix), err)
	}
	defer fp.Close()
	n, err := g.WriteFasta(fp, p.MinContigLen)
	if err != nil {
		log.Fatalf("[writeOutputs] %v\n", err)
	}
	fmt.Printf("[writeOutputs] total write %d contigs to file:%s\n", n, contigsFn(prefix))
}

// CountCmd counts the k-mers of every library into <prefix>.kmerdb.zst.
func CountCmd(c cli.Command) {
	t0 := time.Now()
	opt, p, stop := setup(c, "count")
	defer stop()
	srcs := openSources(opt.CfgFn)
	defer closeSources(srcs)
	ctx, cancel := interruptible()
	defer cancel()
	db, err := Count(ctx, p, srcs, Registry)
	if err != nil {
		log.Fatalf("[CountCmd] %v\n", err)
	}
	if err := db.Save(kmerdbFn(opt.Prefix)); err != nil {
		log.Fatalf("[CountCmd] %v\n", err)
	}
	fmt.Printf("[CountCmd] histogram:%v\n", db.Histogram())
	fmt.Printf("[CountCmd] used time:%v\n", time.Since(t0))
}

// CDBGCmd builds the pre-contig graph from the k-mer store.
func CDBGCmd(c cli.Command) {
	t0 := time.Now()
	opt, p, stop := setup(c, "cdbg", "TipMaxLen", "MinContigLen")
	defer stop()
	db, err := kmerdb.Load(kmerdbFn(opt.Prefix))
	if err != nil {
		log.Fatalf("[CDBGCmd] %v\n", err)
	}
	if t, auto, err := p.Threshold(); err == nil && !auto {
		db.SetThreshold(t)
	}
	g, err := Build(db, p)
	if err != nil {
		log.Fatalf("[CDBGCmd] %v\n", err)
	}
	writeOutputs(g, graphFn(opt.Prefix), opt.Prefix, p, c.Flag("Graph").Get().(bool))
	fmt.Printf("[CDBGCmd] used time:%v\n", time.Since(t0))
}

// SmfyCmd simplifies the graph written by CDBGCmd.
func SmfyCmd(c cli.Command) {
	t0 := time.Now()
	opt, p, stop := setup(c, "smfy", "MinPathReads", "MinContigLen")
	defer stop()
	g, err := asmgraph.Load(graphFn(opt.Prefix))
	if err != nil {
		log.Fatalf("[SmfyCmd] %v\n", err)
	}
	rp, err := Simplify(g, p)
	if err != nil {
		log.Fatalf("[SmfyCmd] %v\n", err)
	}
	fmt.Printf("[SmfyCmd] popped bubbles by length:%v\n", rp.PoppedLen)
	cg, _ := asmgraph.Canonicalize(g)
	writeOutputs(cg, smfyFn(opt.Prefix), opt.Prefix, p, c.Flag("Graph").Get().(bool))
	fmt.Printf("[SmfyCmd] used time:%v\n", time.Since(t0))
}

// AsmCmd runs every stage in one process.
func AsmCmd(c cli.Command) {
	t0 := time.Now()
	opt, p, stop := setup(c, "asm", "TipMaxLen", "MinPathReads", "MinContigLen")
	defer stop()
	srcs := openSources(opt.CfgFn)
	defer closeSources(srcs)
	ctx, cancel := interruptible()
	defer cancel()
	g, rp, err := Run(ctx, p, srcs, Registry)
	if err != nil {
		log.Fatalf("[AsmCmd] %v\n", err)
	}
	fmt.Printf("[AsmCmd] report:%+v\n", rp)
	cg, _ := asmgraph.Canonicalize(g)
	writeOutputs(cg, smfyFn(opt.Prefix), opt.Prefix, p, c.Flag("Graph").Get().(bool))
	fmt.Printf("[AsmCmd] used time:%v\n", time.Since(t0))
}
