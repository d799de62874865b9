package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uksrc/emerlin2caom/internal/astro"
)

func newBandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "band [frequency Hz...]",
		Short: "Classify frequencies into e-MERLIN receiver bands",
		Args:  args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			for _, s := range a {
				freq, err := strconv.ParseFloat(s, 64)
				if err != nil || freq <= 0 {
					return &usageError{fmt.Errorf("invalid frequency %q", s)}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.6g m\n", s, astro.BandClassify(freq), astro.FreqToWavelength(freq))
			}
			return nil
		},
	}
}
