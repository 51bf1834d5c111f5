// Command das2psd replaces a das2 stream's time-domain planes with
// power-spectral-density planes, grounded on das2_psd.c.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/das2gopher/das2stream/cmd/internal/filterio"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/fftcache"
	"github.com/das2gopher/das2stream/psd"
	"github.com/das2gopher/das2stream/stream"
)

func main() {
	daserr.SetDisposition(daserr.DispositionExit)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		cadenceSeconds float64
		haveCadence    bool
		hannWindow     bool
		dcCenter       bool
		grammar        int
	)

	exit := filterio.ExitSuccess
	root := &cobra.Command{
		Use:          "das2psd LENGTH SLIDE_DENOMINATOR",
		Short:        "Transform a das2 waveform stream into spectral density",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			length, err := parsePositiveInt(args[0], "LENGTH")
			if err != nil {
				exit = filterio.Fail(err.Error())
				return nil
			}
			slideDenom, err := parsePositiveInt(args[1], "SLIDE_DENOMINATOR")
			if err != nil {
				exit = filterio.Fail(err.Error())
				return nil
			}

			win := fftcache.WindowNone
			if hannWindow {
				win = fftcache.WindowHann
			}

			opts := []psd.Option{psd.WithLength(length), psd.WithSlideDenom(slideDenom), psd.WithWindow(win)}
			if dcCenter {
				opts = append(opts, psd.WithDCCenter())
			}
			if haveCadence {
				opts = append(opts, psd.WithCadence(cadenceSeconds))
			}

			sio, err := filterio.OpenStdio(grammar)
			if err != nil {
				exit = filterio.ExitCodeFor(err)
				return nil
			}

			h, err := psd.New(sio.Writer, opts...)
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

	root.Flags().Float64VarP(&cadenceSeconds, "cadence", "c", 0, "pin the time-domain sample interval (seconds) instead of deriving it from X-tag spacing")
	root.Flags().BoolVar(&hannWindow, "hann", true, "apply a Hann window before each transform")
	root.Flags().BoolVarP(&dcCenter, "dc-center", "d", false, "subtract each window's mean before transforming")
	root.Flags().IntVar(&grammar, "grammar", 3, "wire grammar version (2 or 3)")
	root.PreRunE = func(cmd *cobra.Command, args []string) error {
		haveCadence = cmd.Flags().Changed("cadence")
		return nil
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return filterio.Fail(err.Error())
	}

	return exit
}

func parsePositiveInt(s, name string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer: %w", name, daserr.ErrInvalidOp)
	}

	return v, nil
}
