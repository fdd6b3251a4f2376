package main

import (
	"github.com/spf13/cobra"

	"github.com/mattkeenan/dupfind/pkg/report"
)

// NewShowCommand creates the show subcommand, which prints a saved report
func NewShowCommand() *cobra.Command {
	var format, as string

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print a saved duplicate report",
		Long: `Read a report written by a previous scan (json, yaml, msgpack or sqlite)
and print it, by default as a human readable summary. --as re-encodes the
report in another format on standard output.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := report.Load(args[0], format)
			if err != nil {
				return err
			}
			enc, err := report.EncoderFor(as)
			if err != nil {
				return err
			}
			return enc(cmd.OutOrStdout(), r)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "format of FILE (default: from its extension)")
	cmd.Flags().StringVar(&as, "as", report.FormatHuman, "output format: human, json, yaml, msgpack, fdupes")

	return cmd
}
