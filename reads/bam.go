package reads

import (
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/mudesheng/gacore/bnt"
	"github.com/pkg/errors"
)

// BAMSource reads an unaligned (or name sorted) BAM file. Records flagged as
// paired are grouped with their mate when the mate follows directly; reads
// stored reverse complemented are restored to sequencing orientation and the
// second mate is reverse complemented so both fragments share a strand.
type BAMSource struct {
	fn      string
	fp      *os.File
	br      *bam.Reader
	pending *sam.Record
}

// NewBAMSource opens fn.
func NewBAMSource(fn string) (*BAMSource, error) {
	bs := &BAMSource{fn: fn}
	if err := bs.open(); err != nil {
		return nil, err
	}
	return bs, nil
}

func (bs *BAMSource) open() error {
	fp, err := os.Open(bs.fn)
	if err != nil {
		return errors.Wrapf(err, "[GetSamRecord] open file: %s failed", bs.fn)
	}
	br, err := bam.NewReader(fp, 1)
	if err != nil {
		fp.Close()
		return errors.Wrapf(err, "[GetSamRecord] create bam.NewReader for %s", bs.fn)
	}
	bs.fp, bs.br, bs.pending = fp, br, nil
	return nil
}

func (bs *BAMSource) read() (*sam.Record, error) {
	if r := bs.pending; r != nil {
		bs.pending = nil
		return r, nil
	}
	for {
		r, err := bs.br.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrapf(err, "[BAMSource] read file: %s", bs.fn)
		}
		if r.Flags&(sam.Secondary|sam.Supplementary) != 0 {
			continue
		}
		return r, nil
	}
}

func recordFragment(r *sam.Record) Fragment {
	frag := Fragment(bnt.Transform2Bnt(r.Seq.Expand()))
	if r.Flags&sam.Reverse != 0 {
		frag = reverseFragment(frag)
	}
	return frag
}

func (bs *BAMSource) Next() ([]Fragment, error) {
	r, err := bs.read()
	if err != nil {
		return nil, err
	}
	if r.Flags&sam.Paired == 0 {
		return []Fragment{recordFragment(r)}, nil
	}
	mate, err := bs.read()
	if err == io.EOF {
		return []Fragment{recordFragment(r)}, nil
	} else if err != nil {
		return nil, err
	}
	if mate.Name != r.Name {
		bs.pending = mate
		return []Fragment{recordFragment(r)}, nil
	}
	if r.Flags&sam.Read2 != 0 {
		r, mate = mate, r
	}
	return []Fragment{recordFragment(r), reverseFragment(recordFragment(mate))}, nil
}

func (bs *BAMSource) Reset() error {
	if err := bs.Close(); err != nil {
		return err
	}
	return bs.open()
}

func (bs *BAMSource) Close() error {
	if bs.fp == nil {
		return nil
	}
	err := bs.br.Close()
	if e := bs.fp.Close(); err == nil {
		err = e
	}
	bs.fp, bs.br, bs.pending = nil, nil, nil
	return errors.Wrapf(err, "[BAMSource.Close] %s", bs.fn)
}
