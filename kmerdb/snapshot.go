package kmerdb

import (
	"bufio"
	"encoding/binary"
	"io"
	"log"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/mudesheng/gacore/kmer"
	"github.com/pkg/errors"
)

var snapshotMagic = [4]byte{'G', 'K', 'D', 'B'}

type snapshotHeader struct {
	Magic     [4]byte
	K         uint32
	Threshold uint32
	Num       uint64
}

type snapshotRecord struct {
	Seq   [kmer.NodeMapKeyLen]uint64
	Count uint32
}

// WriteTo streams the store (counts and threshold, not the built flags) as a
// zstd compressed little-endian record file.
func (s *Store) WriteTo(w io.Writer) (n int64, err error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderCRC(false), zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return 0, errors.Wrap(err, "[WriteTo] zstd writer")
	}
	cw := &countWriter{w: zw}
	bw := bufio.NewWriterSize(cw, 1<<20)
	hd := snapshotHeader{Magic: snapshotMagic, K: uint32(s.k), Threshold: uint32(s.threshold), Num: uint64(len(s.entries))}
	if err = binary.Write(bw, binary.LittleEndian, hd); err != nil {
		return cw.n, errors.Wrap(err, "[WriteTo] header")
	}
	for km, e := range s.entries {
		rec := snapshotRecord{Seq: km.Words(), Count: e.count}
		if err = binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return cw.n, errors.Wrap(err, "[WriteTo] record")
		}
	}
	if err = bw.Flush(); err != nil {
		return cw.n, errors.Wrap(err, "[WriteTo] flush")
	}
	if err = zw.Close(); err != nil {
		return cw.n, errors.Wrap(err, "[WriteTo] close zstd")
	}
	return cw.n, nil
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

// ReadStore restores a store written by WriteTo.
func ReadStore(r io.Reader) (*Store, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "[ReadStore] zstd reader")
	}
	defer zr.Close()
	br := bufio.NewReaderSize(zr, 1<<20)
	var hd snapshotHeader
	if err = binary.Read(br, binary.LittleEndian, &hd); err != nil {
		return nil, errors.Wrap(err, "[ReadStore] header")
	}
	if hd.Magic != snapshotMagic {
		return nil, errors.Errorf("[ReadStore] bad magic %q", hd.Magic[:])
	}
	s, err := New(int(hd.K))
	if err != nil {
		return nil, err
	}
	s.threshold = int(hd.Threshold)
	var rec snapshotRecord
	for i := uint64(0); i < hd.Num; i++ {
		if err = binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, errors.Wrapf(err, "[ReadStore] record %d of %d", i, hd.Num)
		}
		km, err := kmer.FromWords(rec.Seq, s.k)
		if err != nil {
			return nil, err
		}
		s.entries[km] = entry{count: rec.Count}
	}
	return s, nil
}

// Save writes the store to fn.
func (s *Store) Save(fn string) error {
	fp, err := os.Create(fn)
	if err != nil {
		return errors.Wrapf(err, "[Save] create %s", fn)
	}
	defer fp.Close()
	n, err := s.WriteTo(fp)
	if err != nil {
		return errors.Wrapf(err, "[Save] %s", fn)
	}
	log.Printf("[Save] file:%s kmers:%d write total size is %d\n", fn, len(s.entries), n)
	return fp.Sync()
}

// Load reads a store saved with Save.
func Load(fn string) (*Store, error) {
	fp, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "[Load] open %s", fn)
	}
	defer fp.Close()
	return ReadStore(fp)
}
