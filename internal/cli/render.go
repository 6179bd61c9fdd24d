package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/pkg/pipeline"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string   // output base path
	formats []string // dot, svg, png, pdf
	scale   float64  // inches per world unit
	labels  bool     // slot IDs and occupants on nodes
	refresh bool     // bypass cached renders
}

// renderCommand creates the render command for turning snapshots into images.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts    renderOpts
		formats string
	)

	cmd := &cobra.Command{
		Use:   "render [layout.json]",
		Short: "Render a layout snapshot to DOT, SVG, PNG or PDF",
		Long: `Render a layout snapshot to DOT, SVG, PNG or PDF.

Each slot becomes a node pinned at its world position, colored by instance and
filled when occupied. The boundary and every instance's bounds are drawn as
outlines around them. SVG is laid out in-process with Graphviz; PNG and PDF
are converted from the SVG with rsvg-convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = pipeline.ParseFormats(formats)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: <input>)")
	cmd.Flags().StringVarP(&formats, "format", "f", pipeline.FormatSVG, "output format(s): dot, svg, png, pdf (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "inches per world unit")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "label slots with their IDs and occupants")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached renders")

	return cmd
}

// runRender loads the snapshot and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	snap, err := snapshot.Import(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}
	c.Logger.Debug("loaded snapshot", "generation", snap.Generation, "slots", snap.SlotCount())

	runner, err := c.newRunner(ctx)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	popts := pipeline.Options{
		Formats: opts.formats,
		Scale:   opts.scale,
		Labels:  opts.labels,
		Refresh: opts.refresh,
	}

	spinner := newSpinnerWithContext(ctx, "Rendering "+strings.Join(opts.formats, ", ")+"...")
	spinner.Start()
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, snap, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	base := strings.TrimSuffix(basePath(opts.output, input), ".layout")
	paths, err := writeArtifacts(base, opts.formats, artifacts)
	if err != nil {
		return err
	}

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	status := iconFresh
	if cached {
		status = iconCached
	}
	printDetail("%d slots · %s", snap.SlotCount(), status)
	return nil
}
