// Package utils holds the command line and configuration plumbing shared by
// the gacore subcommands.
package utils

import (
	"log"

	"github.com/jwaldrip/odin/cli"
)

type ArgsOpt struct {
	Prefix     string
	Kmer       int
	NumCPU     int
	CfgFn      string
	ParamFn    string
	Cpuprofile string
}

// return global arguments and check if successed
func CheckGlobalArgs(c cli.Command) (opt ArgsOpt, succ bool) {
	opt.Prefix = c.Flag("p").String()
	if opt.Prefix == "" {
		log.Fatalf("[CheckGlobalArgs] args 'p' not set\n")
	}
	opt.CfgFn = c.Flag("C").String()
	if opt.CfgFn == "" {
		log.Fatalf("[CheckGlobalArgs] args 'C' not set\n")
	}
	opt.ParamFn = c.Flag("P").String()
	opt.Cpuprofile = c.Flag("cpuprofile").String()

	var ok bool
	opt.Kmer, ok = c.Flag("K").Get().(int)
	if !ok {
		log.Fatalf("[CheckGlobalArgs] args 'K' : %v set error\n", c.Flag("K").String())
	}
	opt.NumCPU, ok = c.Flag("t").Get().(int)
	if !ok {
		log.Fatalf("[CheckGlobalArgs] args 't': %v set error\n", c.Flag("t").String())
	}
	return opt, true
}

// Params loads the parameter file and applies the global flags over it.
func (opt ArgsOpt) Params() (Params, error) {
	p, err := LoadParams(opt.ParamFn)
	if err != nil {
		return p, err
	}
	if opt.Kmer > 0 {
		p.Kmer = opt.Kmer
	}
	if opt.NumCPU > 0 {
		p.Threads = opt.NumCPU
	}
	return p, p.Validate()
}

// OverrideInt copies the int flag name of c into dst when it is not negative.
// Subcommands define their optional flags with default -1.
func OverrideInt(c cli.Command, name string, dst *int) {
	v, ok := c.Flag(name).Get().(int)
	if !ok {
		log.Fatalf("[OverrideInt] argument '%s': %v set error\n", name, c.Flag(name).String())
	}
	if v >= 0 {
		*dst = v
	}
}
