package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mindmapgen/internal/sizing"
)

func newSizingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizing <length>",
		Short: "Print the sizing target for a text length in characters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("length must be a non-negative integer, got %q", args[0])
			}
			t := sizing.For(n)
			fmt.Fprintf(cmd.OutOrStdout(), "length=%d band=%s nodes=%d-%d target=%d depth=%d\n",
				n, sizing.Band(n), t.MinNodes, t.MaxNodes, t.TargetNodes, t.DepthLevels)
			return nil
		},
	}
}
