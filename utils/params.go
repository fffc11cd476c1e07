package utils

import (
	"strconv"
	"strings"

	"github.com/mudesheng/gacore/kmer"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Params are the assembly settings, read from an optional parameter file
// (any format viper understands) and overridden by command line flags.
type Params struct {
	// k-mer length, odd and below kmer.MaxLen
	Kmer int `mapstructure:"kmer"`
	// a count or "auto" to estimate it from the histogram
	MinKmerFreq string `mapstructure:"min-kmer-freq"`
	// dead ends shorter than this are removed by the builder
	TipMaxLen int `mapstructure:"tip-max-len"`

	BubbleMaxLen      int     `mapstructure:"bubble-max-len"`
	BubbleMaxDiff     int     `mapstructure:"bubble-max-diff"`
	BubbleComplexity  int     `mapstructure:"bubble-complexity"`
	BubbleWeightRatio float64 `mapstructure:"bubble-weight-ratio"`

	MinPathReads int `mapstructure:"min-path-reads"`
	MinContigLen int `mapstructure:"min-contig-len"`
	// ingestion workers
	Threads int `mapstructure:"threads"`
}

// DefaultParams returns the settings used when nothing overrides them.
func DefaultParams() Params {
	return Params{
		Kmer:              31,
		MinKmerFreq:       "auto",
		TipMaxLen:         100,
		BubbleMaxLen:      200,
		BubbleMaxDiff:     5,
		BubbleComplexity:  100,
		BubbleWeightRatio: 0,
		MinPathReads:      2,
		MinContigLen:      0,
		Threads:           1,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultParams()
	v.SetDefault("kmer", d.Kmer)
	v.SetDefault("min-kmer-freq", d.MinKmerFreq)
	v.SetDefault("tip-max-len", d.TipMaxLen)
	v.SetDefault("bubble-max-len", d.BubbleMaxLen)
	v.SetDefault("bubble-max-diff", d.BubbleMaxDiff)
	v.SetDefault("bubble-complexity", d.BubbleComplexity)
	v.SetDefault("bubble-weight-ratio", d.BubbleWeightRatio)
	v.SetDefault("min-path-reads", d.MinPathReads)
	v.SetDefault("min-contig-len", d.MinContigLen)
	v.SetDefault("threads", d.Threads)
}

// LoadParams reads fn over the defaults. An empty fn yields the defaults.
func LoadParams(fn string) (Params, error) {
	v := viper.New()
	setDefaults(v)
	if fn != "" {
		v.SetConfigFile(fn)
		if err := v.ReadInConfig(); err != nil {
			return Params{}, errors.Wrapf(err, "[LoadParams] read %s", fn)
		}
	}
	var p Params
	if err := v.Unmarshal(&p); err != nil {
		return Params{}, errors.Wrapf(err, "[LoadParams] decode %s", fn)
	}
	return p, p.Validate()
}

// Threshold returns the fixed minimum k-mer frequency, or auto set when it
// should be estimated.
func (p Params) Threshold() (t int, auto bool, err error) {
	s := strings.TrimSpace(p.MinKmerFreq)
	if s == "" || strings.EqualFold(s, "auto") {
		return 0, true, nil
	}
	t, err = strconv.Atoi(s)
	if err != nil || t < 0 {
		return 0, false, errors.Errorf("[Params] min-kmer-freq %q must be a non negative integer or 'auto'", p.MinKmerFreq)
	}
	return t, false, nil
}

// Validate checks ranges.
func (p Params) Validate() error {
	if p.Kmer <= 1 || p.Kmer >= kmer.MaxLen {
		return errors.Errorf("[Params] kmer %d must be in (1, %d)", p.Kmer, kmer.MaxLen)
	}
	if p.Kmer%2 != 1 {
		return errors.Errorf("[Params] kmer %d must be an odd number", p.Kmer)
	}
	if _, _, err := p.Threshold(); err != nil {
		return err
	}
	if p.Threads < 1 {
		return errors.Errorf("[Params] threads %d must be positive", p.Threads)
	}
	if p.BubbleWeightRatio < 0 || p.BubbleWeightRatio > 1 {
		return errors.Errorf("[Params] bubble-weight-ratio %v must be in [0, 1]", p.BubbleWeightRatio)
	}
	return nil
}
