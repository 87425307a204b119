// Command mindmapctl runs the mind map pipeline from the command line.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mindmapctl",
		Short: "Generate mind maps from text",
		Long: `mindmapctl runs the same pipeline as the gateway once, without the HTTP
layer: validate, size, chunk, retrieve, prompt, generate, parse and style.

Configuration is read from .env, mindmap.yaml (or --config) and the
environment, exactly as the gateway does.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file (default: ./mindmap.yaml when present)")

	root.AddCommand(newGenerateCmd(), newSizingCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
