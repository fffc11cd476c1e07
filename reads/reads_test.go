package reads

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/klauspost/compress/zstd"
	"github.com/mudesheng/gacore/bnt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type failSource struct {
	after int
	n     int
}

var errBroken = errors.New("broken source")

func (fs *failSource) Next() ([]Fragment, error) {
	if fs.n >= fs.after {
		return nil, errBroken
	}
	fs.n++
	return []Fragment{bnt.FromString("ACGTACGT")}, nil
}

func (fs *failSource) Reset() error { fs.n = 0; return nil }
func (fs *failSource) Close() error { return nil }

func drain(t *testing.T, src Source) []string {
	t.Helper()
	var out []string
	for {
		fa, err := src.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		for _, f := range fa {
			out = append(out, string(bnt.Transform2Char(f)))
		}
	}
}

func TestPoolRun(t *testing.T) {
	srcs := []Source{
		NewSliceSource("ACGT", "AAAA", "CCCC"),
		NewSliceSource("GGGG"),
		NewSliceSource(),
		NewSliceSource("TTTT", "ACAC"),
	}
	reg := prometheus.NewRegistry()
	p := NewPool(3)
	p.BatchSize = 2
	p.Metrics = NewMetrics(reg)
	var mu sync.Mutex
	perSource := make(map[int]int)
	total := 0
	err := p.Run(context.Background(), srcs, func(b Batch) error {
		mu.Lock()
		defer mu.Unlock()
		perSource[b.Source] += len(b.Frags)
		total += len(b.Frags)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if total != 6 {
		t.Errorf("consumed %d fragments, want 6", total)
	}
	want := map[int]int{0: 3, 1: 1, 3: 2}
	if !reflect.DeepEqual(perSource, want) {
		t.Errorf("per source %v, want %v", perSource, want)
	}
	if got := testutil.ToFloat64(p.Metrics.Fragments); got != 6 {
		t.Errorf("fragments counter %v, want 6", got)
	}
	if p.Aborted() {
		t.Error("pool still aborted after a clean run")
	}
}

func TestPoolAbortThenRerun(t *testing.T) {
	p := NewPool(2)
	p.BatchSize = 1
	bad := []Source{NewSliceSource("ACGT", "ACGT"), &failSource{after: 1}}
	err := p.Run(context.Background(), bad, func(Batch) error { return nil })
	if errors.Cause(err) != errBroken {
		t.Fatalf("Run error %v, want %v", err, errBroken)
	}
	if got := testutil.ToFloat64(p.Metrics.SourceFailures); got != 1 {
		t.Errorf("failure counter %v, want 1", got)
	}

	n := 0
	err = p.Run(context.Background(), []Source{NewSliceSource("ACGT", "GGCC")}, func(b Batch) error {
		n += len(b.Frags)
		return nil
	})
	if err != nil {
		t.Fatalf("rerun after abort: %v", err)
	}
	if n != 2 {
		t.Errorf("rerun consumed %d fragments, want 2", n)
	}
}

func TestPoolConsumerError(t *testing.T) {
	p := NewPool(2)
	p.BatchSize = 1
	errStop := errors.New("stop")
	srcs := []Source{NewSliceSource("A", "C", "G", "T"), NewSliceSource("A", "C", "G", "T")}
	err := p.Run(context.Background(), srcs, func(Batch) error { return errStop })
	if errors.Cause(err) != errStop {
		t.Fatalf("Run error %v, want %v", err, errStop)
	}
}

func TestPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPool(1)
	err := p.Run(ctx, []Source{NewSliceSource("ACGT")}, func(Batch) error { return nil })
	if errors.Cause(err) != ErrAborted {
		t.Fatalf("Run error %v, want %v", err, ErrAborted)
	}
}

func TestPairedSource(t *testing.T) {
	pe := &PairedSource{A: NewSliceSource("AACC"), B: NewSliceSource("GGGT"), Kind: PairedEnd}
	if got, want := drain(t, pe), []string{"AACC", "ACCC"}; !reflect.DeepEqual(got, want) {
		t.Errorf("pe %v, want %v", got, want)
	}
	mp := &PairedSource{A: NewSliceSource("AACC", "GGGT"), Kind: MatePair}
	if got, want := drain(t, mp), []string{"GGTT", "GGGT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("interleaved mp %v, want %v", got, want)
	}
	odd := &PairedSource{A: NewSliceSource("AACC"), Kind: PairedEnd}
	if _, err := odd.Next(); err == nil {
		t.Error("missing mate accepted")
	}
}

func TestSource454(t *testing.T) {
	s := NewSource454(NewSliceSource("AAAATTGGCCGGG", "CCCC", "CCGGCCAAT"), "TTGG")
	got := drain(t, s)
	// the third read carries the reverse complemented linker CCAA
	want := []string{"CCGGG", "AAAA", "CCCC", "T", "CCGG"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("454 split %v, want %v", got, want)
	}
}

func TestChainSourceReset(t *testing.T) {
	cs := &ChainSource{Srcs: []Source{NewSliceSource("AC"), NewSliceSource(), NewSliceSource("GT", "TT")}}
	want := []string{"AC", "GT", "TT"}
	if got := drain(t, cs); !reflect.DeepEqual(got, want) {
		t.Errorf("chain %v, want %v", got, want)
	}
	if err := cs.Reset(); err != nil {
		t.Fatal(err)
	}
	if got := drain(t, cs); !reflect.DeepEqual(got, want) {
		t.Errorf("chain after reset %v, want %v", got, want)
	}
}

func TestGetReadsFileFormat(t *testing.T) {
	cases := []struct {
		fn     string
		format string
		ok     bool
	}{
		{"r.fa", FormatFasta, true},
		{"dir/r_1.fastq.gz", FormatFastq, true},
		{"r.fq.zst", FormatFastq, true},
		{"r.fasta.br", FormatFasta, true},
		{"r.bam", FormatBAM, true},
		{"reads", "", false},
		{"r.gz", "", false},
		{"r.txt", "", false},
	}
	for _, c := range cases {
		got, err := GetReadsFileFormat(c.fn)
		if (err == nil) != c.ok || got != c.format {
			t.Errorf("GetReadsFileFormat(%q) = %q, %v", c.fn, got, err)
		}
	}
}

const fastaText = ">r1\nACGTNA\n>r2\nggcc\n"

func writeBAM(t *testing.T, fn string) {
	t.Helper()
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	fp, err := os.Create(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	bw, err := bam.NewWriter(fp, h, 1)
	if err != nil {
		t.Fatal(err)
	}
	recs := []struct {
		name  string
		seq   string
		flags sam.Flags
	}{
		{"p1", "ACGTAAC", sam.Paired | sam.Read1 | sam.Unmapped},
		{"p1", "GGTTCAA", sam.Paired | sam.Read2 | sam.Unmapped | sam.Reverse},
		{"p1", "CCCCCCC", sam.Paired | sam.Read1 | sam.Unmapped | sam.Secondary},
		{"s1", "TTTACG", sam.Unmapped},
	}
	for _, rc := range recs {
		qual := bytes.Repeat([]byte{30}, len(rc.seq))
		r, err := sam.NewRecord(rc.name, nil, nil, -1, -1, 0, 0, nil, []byte(rc.seq), qual, nil)
		if err != nil {
			t.Fatal(err)
		}
		r.Flags = rc.flags
		if err := bw.Write(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBAMSource(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "r.bam")
	writeBAM(t, fn)
	src, err := OpenFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	fa, err := src.Next()
	if err != nil || len(fa) != 2 {
		t.Fatalf("first read: %d fragments, %v", len(fa), err)
	}
	if err := src.Reset(); err != nil {
		t.Fatal(err)
	}
	// the reverse stored mate is restored, then turned onto the first mate's strand
	want := []string{"ACGTAAC", "GGTTCAA", "TTTACG"}
	if got := drain(t, src); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	var gzBuf, zstBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write([]byte(fastaText))
	gw.Close()
	zw, err := zstd.NewWriter(&zstBuf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write([]byte(fastaText))
	zw.Close()
	files := map[string][]byte{
		"r.fa":     []byte(fastaText),
		"r.fa.gz":  gzBuf.Bytes(),
		"r.fa.zst": zstBuf.Bytes(),
		"r.fq":     []byte("@r1\nACGTNA\n+\nIIIIII\n@r2\nggcc\n+\nIIII\n"),
	}
	want := []string{"ACGTNA", "GGCC"}
	for name, data := range files {
		fn := filepath.Join(dir, name)
		if err := os.WriteFile(fn, data, 0644); err != nil {
			t.Fatal(err)
		}
		src, err := OpenFile(fn)
		if err != nil {
			t.Fatalf("OpenFile(%s): %v", name, err)
		}
		if got := drain(t, src); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: %v, want %v", name, got, want)
		}
		if err := src.Reset(); err != nil {
			t.Fatalf("%s reset: %v", name, err)
		}
		if got := drain(t, src); len(got) != 2 {
			t.Errorf("%s after reset: %v", name, got)
		}
		src.Close()
	}
}

func Benchmark_PoolRun(b *testing.B) {
	seqs := make([]string, 1000)
	for i := range seqs {
		seqs[i] = "ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT"
	}
	p := NewPool(4)
	for i := 0; i < b.N; i++ {
		srcs := []Source{NewSliceSource(seqs...), NewSliceSource(seqs...), NewSliceSource(seqs...)}
		p.Run(context.Background(), srcs, func(Batch) error { return nil })
	}
}
