package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/yousuf/stepbyte/internal/complexity"
)

var complexityFormat string

var complexityCmd = &cobra.Command{
	Use:   "complexity <file|->",
	Short: "estimate the complexity of a program without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args[0])
		if err != nil {
			return err
		}
		est := complexity.Analyze(string(src))
		switch complexityFormat {
		case "json":
			return writeIndented(cmd.OutOrStdout(), est)
		case "table":
			renderEstimate(cmd.OutOrStdout(), est)
			return nil
		}
		return errors.Newf("unknown format %q", complexityFormat)
	},
}
