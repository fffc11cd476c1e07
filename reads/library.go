package reads

import (
	"bytes"
	"io"
	"strings"

	"github.com/mudesheng/gacore/bnt"
	"github.com/pkg/errors"
)

// Library kinds as written in the library cfg file.
const (
	SingleEnd = "se"
	PairedEnd = "pe"
	MatePair  = "mp"
	Ls454     = "454"
)

// PairedSource joins mates from two parallel sources, or from consecutive
// records of one interleaved source when B is nil. Paired-end (FR) mates come
// out as [r1, rc(r2)], mate-pair (RF) mates as [rc(r1), r2], so both fragments
// of a pair always read along the same strand.
type PairedSource struct {
	A, B Source
	Kind string
}

func (ps *PairedSource) one(src Source) (Fragment, error) {
	fa, err := src.Next()
	if err != nil {
		return nil, err
	}
	if len(fa) != 1 {
		return nil, errors.Errorf("[PairedSource] mate source returned %d fragments, want 1", len(fa))
	}
	return fa[0], nil
}

func (ps *PairedSource) Next() ([]Fragment, error) {
	r1, err := ps.one(ps.A)
	if err != nil {
		return nil, err
	}
	src := ps.B
	if src == nil {
		src = ps.A
	}
	r2, err := ps.one(src)
	if err == io.EOF {
		return nil, errors.New("[PairedSource] unbalanced mates: second mate missing")
	} else if err != nil {
		return nil, err
	}
	if ps.Kind == MatePair {
		return []Fragment{reverseFragment(r1), r2}, nil
	}
	return []Fragment{r1, reverseFragment(r2)}, nil
}

func (ps *PairedSource) Reset() error {
	if err := ps.A.Reset(); err != nil {
		return err
	}
	if ps.B != nil {
		return ps.B.Reset()
	}
	return nil
}

func (ps *PairedSource) Close() error {
	err := ps.A.Close()
	if ps.B != nil {
		if e := ps.B.Close(); err == nil {
			err = e
		}
	}
	return err
}

// Source454 splits 454 paired reads at their linker. The halves come out as
// [right, left]: circularization puts the mates on the same strand in swapped
// order. A read whose linker is not found is passed on as a single fragment.
type Source454 struct {
	Src    Source
	Linker Fragment
	rcLink Fragment
}

// NewSource454 wraps src with the ASCII linker sequence.
func NewSource454(src Source, linker string) *Source454 {
	lk := Fragment(bnt.FromString(linker))
	return &Source454{Src: src, Linker: lk, rcLink: reverseFragment(lk)}
}

func (s *Source454) Next() ([]Fragment, error) {
	fa, err := s.Src.Next()
	if err != nil {
		return nil, err
	}
	var out []Fragment
	for _, f := range fa {
		out = append(out, s.split(f)...)
	}
	return out, nil
}

func (s *Source454) split(f Fragment) []Fragment {
	if len(s.Linker) == 0 {
		return []Fragment{f}
	}
	idx := bytes.Index(f, s.Linker)
	if idx < 0 {
		idx = bytes.Index(f, s.rcLink)
	}
	if idx < 0 {
		return []Fragment{f}
	}
	left, right := f[:idx], f[idx+len(s.Linker):]
	var out []Fragment
	if len(right) > 0 {
		out = append(out, right)
	}
	if len(left) > 0 {
		out = append(out, left)
	}
	return out
}

func (s *Source454) Reset() error { return s.Src.Reset() }

func (s *Source454) Close() error { return s.Src.Close() }

// OpenFile opens one reads file of any supported format.
func OpenFile(fn string) (Source, error) {
	format, err := GetReadsFileFormat(fn)
	if err != nil {
		return nil, err
	}
	if format == FormatBAM {
		return NewBAMSource(fn)
	}
	return NewFileSource(fn)
}

// OpenLibrary builds the source of one library. Paired kinds take two files or
// one interleaved file; 454 libraries need a linker.
func OpenLibrary(kind string, files []string, linker string) (Source, error) {
	if len(files) == 0 {
		return nil, errors.Errorf("[OpenLibrary] %s library without files", kind)
	}
	var srcs []Source
	for _, fn := range files {
		src, err := OpenFile(fn)
		if err != nil {
			for _, s := range srcs {
				s.Close()
			}
			return nil, err
		}
		srcs = append(srcs, src)
	}
	switch strings.ToLower(kind) {
	case SingleEnd, "":
		if len(srcs) == 1 {
			return srcs[0], nil
		}
		return &ChainSource{Srcs: srcs}, nil
	case PairedEnd, MatePair:
		if len(srcs) > 2 {
			break
		}
		ps := &PairedSource{A: srcs[0], Kind: strings.ToLower(kind)}
		if len(srcs) == 2 {
			ps.B = srcs[1]
		}
		return ps, nil
	case Ls454:
		if linker == "" {
			break
		}
		var src Source = srcs[0]
		if len(srcs) > 1 {
			src = &ChainSource{Srcs: srcs}
		}
		return NewSource454(src, linker), nil
	}
	for _, s := range srcs {
		s.Close()
	}
	return nil, errors.Errorf("[OpenLibrary] cannot build %q library from %d files (linker %q)", kind, len(files), linker)
}

// ChainSource reads its sources one after another.
type ChainSource struct {
	Srcs []Source
	cur  int
}

func (cs *ChainSource) Next() ([]Fragment, error) {
	for cs.cur < len(cs.Srcs) {
		fa, err := cs.Srcs[cs.cur].Next()
		if err == io.EOF {
			cs.cur++
			continue
		}
		return fa, err
	}
	return nil, io.EOF
}

func (cs *ChainSource) Reset() error {
	for _, s := range cs.Srcs {
		if err := s.Reset(); err != nil {
			return err
		}
	}
	cs.cur = 0
	return nil
}

func (cs *ChainSource) Close() (err error) {
	for _, s := range cs.Srcs {
		if e := s.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
