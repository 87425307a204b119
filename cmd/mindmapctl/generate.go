package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"mindmapgen/internal/apperr"
	"mindmapgen/internal/gateway/app"
	"mindmapgen/internal/gateway/config"
	llmclient "mindmapgen/internal/llmClient"
	"mindmapgen/internal/observability"
	"mindmapgen/internal/types"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [text...]",
		Short: "Generate a mind map for a text",
		Long: `Generate reads the text from --file, from the arguments, or from stdin when
neither is given, and prints the styled mind map as JSON or YAML.`,
		RunE: runGenerate,
	}
	cmd.Flags().StringP("file", "f", "", "read the text from a file")
	cmd.Flags().String("format", "json", "output format: json or yaml")
	cmd.Flags().Bool("fake", false, "use the offline fake provider")
	cmd.Flags().String("log-level", "warn", "log level for diagnostics on stderr")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}

	text, err := readText(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := observability.NewLogger(cfg.Env, level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p, err := app.NewPipeline(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Generator.Generate(ctx, text)
	if err != nil {
		e := apperr.From(err)
		return fmt.Errorf("%s (%s)", e.Public(), e.Kind)
	}
	return writeResult(cmd.OutOrStdout(), res, format)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if cfg == nil {
		return nil, err
	}
	if fake, _ := cmd.Flags().GetBool("fake"); fake {
		cfg.Provider = llmclient.ProviderFake
		err = cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func readText(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	switch {
	case file != "":
		if len(args) > 0 {
			return "", fmt.Errorf("provide the text either with --file or as arguments, not both")
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
}

// writeResult keeps the JSON field names in YAML output by converting through
// a generic value.
func writeResult(w io.Writer, res *types.GenerationResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
