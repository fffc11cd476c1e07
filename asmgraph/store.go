package asmgraph

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/klauspost/compress/zstd"
	"github.com/mudesheng/gacore/bnt"
	"github.com/pkg/errors"
)

type contigRec struct {
	Seq     []byte
	Attrs   map[string]int64
	Deleted bool
}

type pathRec struct {
	IDs     []int
	Attrs   map[string]int64
	Notes   []string
	Deleted bool
}

type graphRec struct {
	Overlap int
	Contigs []contigRec
	Paths   []pathRec
}

// WriteTo encodes the whole arena, deleted entries included, as a zstd
// compressed gob stream.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	rec := graphRec{Overlap: g.Overlap}
	for _, c := range g.contigs[1:] {
		rec.Contigs = append(rec.Contigs, contigRec{c.Seq, c.Attrs, c.deleted})
	}
	for _, p := range g.paths[1:] {
		rec.Paths = append(rec.Paths, pathRec{p.IDs, p.Attrs, p.Notes, p.deleted})
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderCRC(false), zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return 0, errors.Wrap(err, "[Graph.WriteTo] zstd writer")
	}
	cw := &countWriter{w: zw}
	if err := gob.NewEncoder(cw).Encode(&rec); err != nil {
		zw.Close()
		return cw.n, errors.Wrap(err, "[Graph.WriteTo] encode")
	}
	return cw.n, errors.Wrap(zw.Close(), "[Graph.WriteTo] close zstd")
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ReadGraph decodes a stream written by WriteTo and rebuilds the path index.
func ReadGraph(r io.Reader) (*Graph, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "[ReadGraph] zstd reader")
	}
	defer zr.Close()
	var rec graphRec
	if err := gob.NewDecoder(zr).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "[ReadGraph] decode")
	}
	g := New(rec.Overlap)
	for _, c := range rec.Contigs {
		if c.Attrs == nil {
			c.Attrs = make(map[string]int64)
		}
		g.contigs = append(g.contigs, Contig{Seq: c.Seq, Attrs: c.Attrs, deleted: c.Deleted})
	}
	for _, p := range rec.Paths {
		if p.Attrs == nil {
			p.Attrs = make(map[string]int64)
		}
		if !p.Deleted {
			if err := g.checkIDs(p.IDs); err != nil {
				return nil, errors.Wrapf(err, "[ReadGraph] path %d", len(g.paths))
			}
		}
		g.paths = append(g.paths, Path{IDs: p.IDs, Attrs: p.Attrs, Notes: p.Notes, deleted: p.Deleted})
		if !p.Deleted {
			g.index(len(g.paths) - 1)
		}
	}
	return g, nil
}

// Save writes the graph to fn.
func (g *Graph) Save(fn string) error {
	fp, err := os.Create(fn)
	if err != nil {
		return errors.Wrapf(err, "[Graph.Save] create file: %s", fn)
	}
	bw := bufio.NewWriterSize(fp, 1<<16)
	n, err := g.WriteTo(bw)
	if err == nil {
		err = bw.Flush()
	}
	if e := fp.Close(); err == nil {
		err = e
	}
	if err != nil {
		return errors.Wrapf(err, "[Graph.Save] %s", fn)
	}
	log.Printf("[Graph.Save] contigs:%d paths:%d bytes:%d file:%s\n", g.NumberContigs(), g.NumberPaths(), n, fn)
	return nil
}

// Load reads a graph saved by Save.
func Load(fn string) (*Graph, error) {
	fp, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "[Load] open file: %s", fn)
	}
	defer fp.Close()
	g, err := ReadGraph(bufio.NewReaderSize(fp, 1<<16))
	return g, errors.Wrapf(err, "[Load] %s", fn)
}

// WriteFasta writes every live contig of at least minLen bases on its stored
// strand. Record names are the contig ids, the description carries length and
// weight.
func (g *Graph) WriteFasta(w io.Writer, minLen int) (count int, err error) {
	fw := fasta.NewWriter(w, 80)
	for _, id := range g.ContigIDs() {
		c := g.contigs[id]
		if len(c.Seq) < minLen {
			continue
		}
		s := linear.NewSeq(fmt.Sprint(id), alphabet.BytesToLetters(bnt.Transform2Char(c.Seq)), alphabet.DNA)
		s.Desc = fmt.Sprintf("len:%d weight:%d", len(c.Seq), c.Attrs[AttrWeight])
		if _, err = fw.Write(s); err != nil {
			return count, errors.Wrapf(err, "[WriteFasta] contig %d", id)
		}
		count++
	}
	return count, nil
}
