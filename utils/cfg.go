package utils

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/mudesheng/gacore/reads"
	"github.com/pkg/errors"
)

// LibInfo describes one sequencing library of the cfg file.
type LibInfo struct {
	Name   string   // name of library
	Kind   string   // se, pe, mp or 454
	Linker string   // 454 linker sequence
	FnName []string // the files name slice
}

type CfgInfo struct {
	Libs []LibInfo
}

// ParseCfg reads the library cfg file:
//
//	[LIB]
//	name = lib1
//	kind = pe
//	f = reads_1.fq.zst
//	f = reads_2.fq.zst
//
// Lines starting with '#' or ';' are comments.
func ParseCfg(fn string) (cfgInfo CfgInfo, err error) {
	inFile, err := os.Open(fn)
	if err != nil {
		return cfgInfo, errors.Wrapf(err, "[ParseCfg] open %s", fn)
	}
	defer inFile.Close()
	return ReadCfg(inFile)
}

// ReadCfg parses cfg text from r.
func ReadCfg(r io.Reader) (cfgInfo CfgInfo, err error) {
	var libInfo LibInfo
	flush := func() error {
		if libInfo.Name == "" && len(libInfo.FnName) == 0 {
			return nil
		}
		if len(libInfo.FnName) == 0 {
			return errors.Errorf("[ParseCfg] library %q has no file", libInfo.Name)
		}
		if libInfo.Kind == "" {
			libInfo.Kind = reads.SingleEnd
		}
		cfgInfo.Libs = append(cfgInfo.Libs, libInfo)
		libInfo = LibInfo{}
		return nil
	}
	scanner := bufio.NewScanner(r)
	for ln := 1; scanner.Scan(); ln++ {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0][0] == '#' || fields[0][0] == ';' {
			continue
		}
		if fields[0] == "[global_setting]" {
			continue
		}
		if fields[0] == "[LIB]" {
			if err = flush(); err != nil {
				return cfgInfo, err
			}
			continue
		}
		if len(fields) != 3 || fields[1] != "=" {
			return cfgInfo, errors.Errorf("[ParseCfg] line %d: %q, want 'key = value'", ln, line)
		}
		switch fields[0] {
		case "name":
			libInfo.Name = fields[2]
		case "kind":
			switch k := strings.ToLower(fields[2]); k {
			case reads.SingleEnd, reads.PairedEnd, reads.MatePair, reads.Ls454:
				libInfo.Kind = k
			default:
				return cfgInfo, errors.Errorf("[ParseCfg] line %d: unknown library kind %q", ln, fields[2])
			}
		case "linker":
			libInfo.Linker = fields[2]
		case "f", "p":
			if _, err = reads.GetReadsFileFormat(fields[2]); err != nil {
				return cfgInfo, err
			}
			libInfo.FnName = append(libInfo.FnName, fields[2])
		default:
			return cfgInfo, errors.Errorf("[ParseCfg] line %d: unknown key %q", ln, fields[0])
		}
	}
	if err = scanner.Err(); err != nil {
		return cfgInfo, errors.Wrap(err, "[ParseCfg]")
	}
	if err = flush(); err != nil {
		return cfgInfo, err
	}
	if len(cfgInfo.Libs) == 0 {
		return cfgInfo, errors.New("[ParseCfg] no library found")
	}
	return cfgInfo, nil
}

// OpenLibs opens one source per library. On failure the sources already
// opened are closed.
func (cfg CfgInfo) OpenLibs() ([]reads.Source, error) {
	var srcs []reads.Source
	for _, lib := range cfg.Libs {
		src, err := reads.OpenLibrary(lib.Kind, lib.FnName, lib.Linker)
		if err != nil {
			for _, s := range srcs {
				s.Close()
			}
			return nil, errors.Wrapf(err, "[OpenLibs] library %s", lib.Name)
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}
