package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/pkg/pipeline"
)

// layoutCommand creates the layout command for computing formation layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags   layoutFlags
		output  string
		formats string
		refresh bool
		scale   float64
		labels  bool
	)

	cmd := &cobra.Command{
		Use:   "layout [settings.toml]",
		Short: "Compute a formation layout from a settings file",
		Long: `Compute a formation layout from a settings file.

The layout command generates every instance, spreads them across the boundary
and shrinks spacing until all slots fit. The result is a snapshot
(<name>.layout.json) that 'render' can turn into an image. Other formats can be
written in the same run with -f.

Without a settings file the defaults are used. Flags override file values.
Results are cached by their settings; --refresh recomputes them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args)
			if err != nil {
				return err
			}
			opts.Formats = pipeline.ParseFormats(formats)
			opts.Refresh = refresh
			opts.Scale = scale
			opts.Labels = labels

			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			return c.runLayout(cmd.Context(), opts, basePath(output, input))
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: <input> or formation)")
	cmd.Flags().StringVarP(&formats, "format", "f", pipeline.FormatJSON, "output format(s): json, dot, svg, png, pdf (comma-separated)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	cmd.Flags().Float64Var(&scale, "scale", 0, "inches per world unit in rendered images")
	cmd.Flags().BoolVar(&labels, "labels", false, "label slots with their IDs and occupants")

	return cmd
}

// runLayout executes the pipeline and writes every artifact.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, base string) error {
	runner, err := c.newRunner(ctx)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", opts.Settings.Shape))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(base, opts.Formats, result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Layout complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats, result.CacheInfo.LayoutHit)
	if result.Stats.Fallback {
		printWarning("Layout did not fit the boundary; fallback grid applied")
	}
	printNewline()
	if len(paths) > 0 && paths[0] == outputPath(base, pipeline.FormatJSON) {
		printNextStep("Render", appName+" render "+paths[0])
	}
	return nil
}
