package reads

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/google/brotli/go/cbrotli"
	"github.com/klauspost/compress/zstd"
	"github.com/mudesheng/gacore/bnt"
	"github.com/pkg/errors"
)

const (
	FormatFasta = "fa"
	FormatFastq = "fq"
	FormatBAM   = "bam"
)

// GetReadsFileFormat derives the record format from a file name such as
// reads.fq.zst, reads.fasta.gz or reads.bam.
func GetReadsFileFormat(fn string) (format string, err error) {
	sfn := strings.Split(fn, ".")
	if len(sfn) < 2 {
		return "", errors.Errorf("[GetReadsFileFormat] reads file: %v need suffix '*.fa | *.fq | *.bam' optionally followed by .gz|.zst|.br", fn)
	}
	tmp := sfn[len(sfn)-1]
	switch tmp {
	case "gz", "zst", "br":
		if len(sfn) < 3 {
			return "", errors.Errorf("[GetReadsFileFormat] reads file: %v misses the record format before .%s", fn, tmp)
		}
		tmp = sfn[len(sfn)-2]
	}
	switch tmp {
	case "fa", "fasta":
		format = FormatFasta
	case "fq", "fastq":
		format = FormatFastq
	case "bam":
		format = FormatBAM
	default:
		return "", errors.Errorf("[GetReadsFileFormat] reads file: %v unknown format %q", fn, tmp)
	}
	return format, nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() (err error) {
	for i := len(m.closers) - 1; i >= 0; i-- {
		if e := m.closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// openReads opens fn and stacks the decompressor its suffix asks for.
func openReads(fn string) (io.ReadCloser, error) {
	fp, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "[openReads] open file: %v failed", fn)
	}
	switch {
	case strings.HasSuffix(fn, ".gz"):
		gz, err := gzip.NewReader(fp)
		if err != nil {
			fp.Close()
			return nil, errors.Wrapf(err, "[openReads] gzip open file: %v failed", fn)
		}
		return &multiCloser{Reader: bufio.NewReaderSize(gz, 1<<20), closers: []io.Closer{fp, gz}}, nil
	case strings.HasSuffix(fn, ".zst"):
		zr, err := zstd.NewReader(fp, zstd.WithDecoderConcurrency(1))
		if err != nil {
			fp.Close()
			return nil, errors.Wrapf(err, "[openReads] zstd open file: %v failed", fn)
		}
		return &multiCloser{Reader: bufio.NewReaderSize(zr, 1<<20), closers: []io.Closer{fp, zr.IOReadCloser()}}, nil
	case strings.HasSuffix(fn, ".br"):
		br := cbrotli.NewReader(fp)
		return &multiCloser{Reader: bufio.NewReaderSize(br, 1<<20), closers: []io.Closer{fp, br}}, nil
	}
	return &multiCloser{Reader: bufio.NewReaderSize(fp, 1<<20), closers: []io.Closer{fp}}, nil
}

// FileSource reads single-end records from a FASTA or FASTQ file, plain or
// compressed.
type FileSource struct {
	fn     string
	format string
	rc     io.ReadCloser
	rd     seqio.Reader
}

// NewFileSource opens fn.
func NewFileSource(fn string) (*FileSource, error) {
	format, err := GetReadsFileFormat(fn)
	if err != nil {
		return nil, err
	}
	if format == FormatBAM {
		return nil, errors.Errorf("[NewFileSource] %s is a BAM file, use NewBAMSource", fn)
	}
	fs := &FileSource{fn: fn, format: format}
	if err = fs.open(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileSource) open() error {
	rc, err := openReads(fs.fn)
	if err != nil {
		return err
	}
	fs.rc = rc
	if fs.format == FormatFastq {
		fs.rd = fastq.NewReader(rc, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger))
	} else {
		fs.rd = fasta.NewReader(rc, linear.NewSeq("", nil, alphabet.DNA))
	}
	return nil
}

func (fs *FileSource) Next() ([]Fragment, error) {
	s, err := fs.rd.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "[FileSource.Next] read file: %s", fs.fn)
	}
	var frag Fragment
	switch l := s.(type) {
	case *linear.Seq:
		frag = make(Fragment, len(l.Seq))
		for i, c := range l.Seq {
			frag[i] = bnt.Base2Bnt[byte(c)]
		}
	case *linear.QSeq:
		frag = make(Fragment, len(l.Seq))
		for i, ql := range l.Seq {
			frag[i] = bnt.Base2Bnt[byte(ql.L)]
		}
	default:
		return nil, errors.Errorf("[FileSource.Next] file: %s unexpected record type %T", fs.fn, s)
	}
	return []Fragment{frag}, nil
}

// Reset reopens the file from the start.
func (fs *FileSource) Reset() error {
	if err := fs.Close(); err != nil {
		return err
	}
	return fs.open()
}

func (fs *FileSource) Close() error {
	if fs.rc == nil {
		return nil
	}
	err := fs.rc.Close()
	fs.rc, fs.rd = nil, nil
	return errors.Wrapf(err, "[FileSource.Close] %s", fs.fn)
}
