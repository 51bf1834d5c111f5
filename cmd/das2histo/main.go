// Command das2histo bins each non-X plane's own value range into fixed-width
// bins, replacing the plane with a count (or cumulative-fraction) series,
// grounded on das2_histo.c.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/das2gopher/das2stream/cmd/internal/filterio"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/histogram"
	"github.com/das2gopher/das2stream/stream"
)

func main() {
	daserr.SetDisposition(daserr.DispositionExit)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		binWidth  float64
		begin     float64
		haveBegin bool
		fracBelow bool
		fracAbove bool
		grammar   int
	)

	exit := filterio.ExitSuccess
	root := &cobra.Command{
		Use:          "das2histo",
		Short:        "Bin a das2 stream's plane values into a fixed-width histogram",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := selectMode(fracBelow, fracAbove)
			if err != nil {
				exit = filterio.Fail(err.Error())
				return nil
			}

			opts := []histogram.Option{histogram.WithBinWidth(binWidth), histogram.WithMode(mode)}
			if haveBegin {
				opts = append(opts, histogram.WithBegin(begin))
			}

			sio, err := filterio.OpenStdio(grammar)
			if err != nil {
				exit = filterio.ExitCodeFor(err)
				return nil
			}

			h, err := histogram.New(sio.Writer, opts...)
			if err != nil {
				exit = filterio.ExitCodeFor(err)
				return nil
			}

			codec := stream.NewCodec(sio.In)
			if err := codec.AddHandler(h); err != nil {
				exit = filterio.ExitCodeFor(err)
				return nil
			}

			exit = filterio.Run(sio, codec)

			return nil
		},
	}

	root.Flags().Float64VarP(&binWidth, "bin-width", "w", 1, "bin width in the plane's own units")
	root.Flags().Float64Var(&begin, "begin", 0, "pin the first bin's lower edge instead of deriving it from the first observed value")
	root.Flags().BoolVarP(&fracBelow, "frac-below", "b", false, "report the cumulative fraction at or below each bin instead of raw counts")
	root.Flags().BoolVarP(&fracAbove, "frac-above", "a", false, "report the cumulative fraction at or above each bin instead of raw counts")
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

// selectMode resolves the mutually exclusive --frac-below/--frac-above flags
// into a histogram.Mode, grounded on das2_histo.c's -b/-a flags.
func selectMode(fracBelow, fracAbove bool) (histogram.Mode, error) {
	if fracBelow && fracAbove {
		return histogram.RawCounts, fmt.Errorf("%w: --frac-below and --frac-above are mutually exclusive", daserr.ErrInvalidOp)
	}
	switch {
	case fracBelow:
		return histogram.FracBelow, nil
	case fracAbove:
		return histogram.FracAbove, nil
	default:
		return histogram.RawCounts, nil
	}
}
