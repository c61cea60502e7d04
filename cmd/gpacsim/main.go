// gpacsim loads a circuit specification, finalizes it and simulates it,
// with optional dot, LaTeX and source-form exports.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/flebeau/GPAClib/internal/consts"
	"github.com/flebeau/GPAClib/pkg/analysis"
	"github.com/flebeau/GPAClib/pkg/netlist"
	"github.com/flebeau/GPAClib/pkg/plot"
)

type options struct {
	inputFile        string
	plotFile         string
	bound            float64
	step             float64
	dotFile          string
	latexFile        string
	toCode           bool
	noSimulation     bool
	noSimplification bool
	noFinalization   bool
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:           "gpacsim [circuit-file]",
		Short:         "Simulate general purpose analog computer circuits",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.inputFile = args[0]
			}
			if opts.inputFile == "" {
				return errors.New("no input circuit specification given")
			}
			return run(&opts)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.inputFile, "input", "i", "", "input circuit specification file")
	flags.StringVarP(&opts.plotFile, "output", "o", "", "plot output file (pdf)")
	flags.Float64VarP(&opts.bound, "bound", "b", consts.DefaultStopTime, "simulation upper bound")
	flags.Float64VarP(&opts.step, "step", "s", consts.DefaultTimeStep, "integration step")
	flags.StringVarP(&opts.dotFile, "dot", "d", "", "write a dot representation to this file")
	flags.StringVar(&opts.latexFile, "to-latex", "", "write the pIVP in LaTeX form to this file")
	flags.BoolVar(&opts.toCode, "to-code", false, "print the circuit in specification form")
	flags.BoolVar(&opts.noSimulation, "no-simulation", false, "skip the simulation")
	flags.BoolVar(&opts.noSimplification, "no-simplification", false, "finalize without simplifying")
	flags.BoolVar(&opts.noFinalization, "no-finalization", false, "skip finalization (implies --no-simulation)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts *options) error {
	content, err := os.ReadFile(opts.inputFile)
	if err != nil {
		return errors.Wrapf(err, "reading circuit file %s", opts.inputFile)
	}
	ckt, err := netlist.Parse(string(content))
	if err != nil {
		return errors.Wrapf(err, "parsing %s", opts.inputFile)
	}

	if opts.dotFile != "" {
		if err := os.WriteFile(opts.dotFile, []byte(ckt.ToDot()), 0o644); err != nil {
			return errors.Wrap(err, "writing dot file")
		}
	}
	if opts.toCode {
		fmt.Print(ckt.ToCode())
	}
	if opts.noFinalization {
		return nil
	}

	if err := ckt.Finalize(!opts.noSimplification); err != nil {
		return err
	}

	if opts.latexFile != "" {
		tex, err := ckt.ToLaTeX()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.latexFile, []byte(tex), 0o644); err != nil {
			return errors.Wrap(err, "writing LaTeX file")
		}
	}
	if opts.noSimulation {
		return nil
	}

	tran := analysis.NewTransient(0, opts.bound, opts.step)
	if err := tran.Setup(ckt); err != nil {
		return err
	}
	if err := tran.Execute(); err != nil {
		return err
	}
	times, values := tran.Output()

	if opts.plotFile != "" {
		return plot.Render(times, values, ckt.Name(), opts.plotFile)
	}
	for i := range times {
		fmt.Printf("%g\t%g\n", times[i], values[i])
	}
	return nil
}
