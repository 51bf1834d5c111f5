// Command das2reduce bins a das2 stream's records into fixed-width time
// bins, averaging each plane within a bin, grounded on das2_bin_avgsec.c.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/das2gopher/das2stream/cmd/internal/filterio"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/reducer"
	"github.com/das2gopher/das2stream/stream"
)

func main() {
	daserr.SetDisposition(daserr.DispositionExit)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		begin      float64
		haveBegin  bool
		minMax     bool
		stdDev     bool
		peak       bool
		noProgress bool
		grammar    int
	)

	exit := filterio.ExitSuccess
	root := &cobra.Command{
		Use:          "das2reduce BIN_SECONDS",
		Short:        "Average a das2 stream into fixed-width time bins",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			binSeconds, err := parsePositiveFloat(args[0])
			if err != nil {
				exit = filterio.Fail(err.Error())
				return nil
			}

			opts := []reducer.Option{reducer.WithBinSeconds(binSeconds)}
			if haveBegin {
				opts = append(opts, reducer.WithBegin(begin))
			}
			if minMax {
				opts = append(opts, reducer.WithMinMax())
			}
			if stdDev {
				opts = append(opts, reducer.WithStdDev())
			}
			if peak {
				opts = append(opts, reducer.WithPeak())
			}

			exit = runFilter(grammar, noProgress, func(w *stream.Writer) (stream.Handler, error) {
				return reducer.New(w, opts...)
			})

			return nil
		},
	}

	root.Flags().Float64VarP(&begin, "begin", "b", 0, "pin bin 0's start (us2000) instead of deriving it from the first record")
	root.Flags().BoolVarP(&minMax, "range", "r", false, "emit .min/.max auxiliary planes alongside the average")
	root.Flags().BoolVarP(&stdDev, "stddev", "s", false, "emit a .stddev auxiliary plane")
	root.Flags().BoolVar(&peak, "peak", false, "emit .peak/.valley auxiliary planes (das2_bin_peakavgsec.c variant)")
	root.Flags().BoolVarP(&noProgress, "no-progress", "p", false, "suppress progress comments")
	root.Flags().IntVar(&grammar, "grammar", 3, "wire grammar version (2 or 3)")
	root.PreRunE = func(cmd *cobra.Command, args []string) error {
		haveBegin = cmd.Flags().Changed("begin")
		return nil
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return filterio.Fail(err.Error())
	}

	return exit
}

func parsePositiveFloat(s string) (float64, error) {
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return 0, fmt.Errorf("BIN_SECONDS must be a number: %w", daserr.ErrInvalidOp)
	}
	if v <= 0 {
		return 0, fmt.Errorf("BIN_SECONDS must be positive: %w", daserr.ErrInvalidOp)
	}

	return v, nil
}

func runFilter(grammar int, noProgress bool, build func(*stream.Writer) (stream.Handler, error)) int {
	sio, err := filterio.OpenStdio(grammar)
	if err != nil {
		return filterio.ExitCodeFor(err)
	}

	h, err := build(sio.Writer)
	if err != nil {
		return filterio.ExitCodeFor(err)
	}

	codec := stream.NewCodec(sio.In)
	if err := codec.AddHandler(filterio.WithProgress(h, sio.Writer, noProgress)); err != nil {
		return filterio.ExitCodeFor(err)
	}

	return filterio.Run(sio, codec)
}
