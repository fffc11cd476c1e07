package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jwaldrip/odin/cli"
	"github.com/mudesheng/gacore/assemble"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Kmerdef = 31

var app = cli.New("1.0.0", "de Bruijn graph assembler core", func(c cli.Command) {})

func init() {
	http.Handle("/metrics", promhttp.HandlerFor(assemble.Registry, promhttp.HandlerOpts{}))
	go func() {
		log.Println(http.ListenAndServe("localhost:6090", nil))
	}()
	app.DefineStringFlag("C", "ga.cfg", "library configure file")
	app.DefineStringFlag("P", "", "parameter file (yaml, toml or json)")
	app.DefineStringFlag("cpuprofile", "", "write cpu profile to <prefix>.<subcommand>.<file>")
	app.DefineIntFlag("K", Kmerdef, "kmer length, odd")
	app.DefineStringFlag("p", "gacore", "prefix of the output file")
	app.DefineIntFlag("t", 1, "number of CPU used")

	app.DefineSubCommand("count", "count kmers of the libraries", assemble.CountCmd)
	cdbg := app.DefineSubCommand("cdbg", "construct pre-contig graph from the kmer store", assemble.CDBGCmd)
	{
		cdbg.DefineIntFlag("TipMaxLen", -1, "Maximum tip length, negative keeps the parameter file value")
		cdbg.DefineIntFlag("MinContigLen", -1, "Minimum contig length written to fasta")
		cdbg.DefineBoolFlag("Graph", false, "output dot graph file")
	}
	smfy := app.DefineSubCommand("smfy", "Simplify the pre-contig graph", assemble.SmfyCmd)
	{
		smfy.DefineIntFlag("MinPathReads", -1, "Minimum reads supporting a path")
		smfy.DefineIntFlag("MinContigLen", -1, "Minimum length of a contig without paths")
		smfy.DefineBoolFlag("Graph", false, "output dot graph file")
	}
	asm := app.DefineSubCommand("asm", "count, construct and simplify in one run", assemble.AsmCmd)
	{
		asm.DefineIntFlag("TipMaxLen", -1, "Maximum tip length, negative keeps the parameter file value")
		asm.DefineIntFlag("MinPathReads", -1, "Minimum reads supporting a path")
		asm.DefineIntFlag("MinContigLen", -1, "Minimum length of a contig without paths")
		asm.DefineBoolFlag("Graph", false, "output dot graph file")
	}
}

func main() {
	app.Start()
}
