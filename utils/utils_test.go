package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadParamsDefaults(t *testing.T) {
	p, err := LoadParams("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p, DefaultParams()) {
		t.Errorf("LoadParams(\"\") = %+v", p)
	}
	if _, auto, _ := p.Threshold(); !auto {
		t.Error("default threshold is not auto")
	}
}

func TestLoadParamsFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "asm.yaml")
	text := "kmer: 21\nmin-kmer-freq: \"3\"\nbubble-weight-ratio: 0.5\nthreads: 4\n"
	if err := os.WriteFile(fn, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadParams(fn)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kmer != 21 || p.Threads != 4 || p.BubbleWeightRatio != 0.5 || p.TipMaxLen != DefaultParams().TipMaxLen {
		t.Errorf("params %+v", p)
	}
	if th, auto, err := p.Threshold(); th != 3 || auto || err != nil {
		t.Errorf("Threshold = %d,%v,%v", th, auto, err)
	}
	opt := ArgsOpt{ParamFn: fn, Kmer: 23, NumCPU: 2}
	if p, err = opt.Params(); err != nil || p.Kmer != 23 || p.Threads != 2 {
		t.Errorf("flag override %+v, %v", p, err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		mod func(*Params)
		ok  bool
	}{
		{func(p *Params) {}, true},
		{func(p *Params) { p.Kmer = 30 }, false},
		{func(p *Params) { p.Kmer = 129 }, false},
		{func(p *Params) { p.MinKmerFreq = "-2" }, false},
		{func(p *Params) { p.MinKmerFreq = "AUTO" }, true},
		{func(p *Params) { p.Threads = 0 }, false},
		{func(p *Params) { p.BubbleWeightRatio = 1.5 }, false},
	}
	for i, c := range cases {
		p := DefaultParams()
		c.mod(&p)
		if err := p.Validate(); (err == nil) != c.ok {
			t.Errorf("case %d: Validate = %v", i, err)
		}
	}
}

func TestReadCfg(t *testing.T) {
	text := `# libraries
[global_setting]
[LIB]
name = frag
kind = PE
f = r_1.fq.gz
f = r_2.fq.gz
[LIB]
name = long
kind = 454
linker = TCGTATAACTTCGTATAATGTATGCTATACGAAGTTATTACG
f = r454.fa.zst
[LIB]
f = single.fasta
`
	cfg, err := ReadCfg(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	want := []LibInfo{
		{Name: "frag", Kind: "pe", FnName: []string{"r_1.fq.gz", "r_2.fq.gz"}},
		{Name: "long", Kind: "454", Linker: "TCGTATAACTTCGTATAATGTATGCTATACGAAGTTATTACG", FnName: []string{"r454.fa.zst"}},
		{Kind: "se", FnName: []string{"single.fasta"}},
	}
	if !reflect.DeepEqual(cfg.Libs, want) {
		t.Errorf("libs %+v", cfg.Libs)
	}
	for _, bad := range []string{
		"[LIB]\nname = x\n",
		"[LIB]\nkind = xx\nf = a.fa\n",
		"[LIB]\nf = a.txt\n",
		"[LIB]\nsize 3\n",
		"",
	} {
		if _, err := ReadCfg(strings.NewReader(bad)); err == nil {
			t.Errorf("ReadCfg(%q) accepted", bad)
		}
	}
}
