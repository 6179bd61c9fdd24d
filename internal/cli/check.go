package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/pkg/layout"
	"github.com/matzehuels/formation/pkg/pipeline"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// checkCommand creates the check command, which reports how a layout fits.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		flags  layoutFlags
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check [settings.toml]",
		Short: "Report how well a layout fits its boundary",
		Long: `Report how well a layout fits its boundary.

check computes the layout and prints, per instance, its spacing multiplier,
offset, extent and how far its worst slot lies outside the boundary. With
--strict the command fails when any slot lies outside or the fallback grid
had to be used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args)
			if err != nil {
				return err
			}
			return c.runCheck(cmd.Context(), opts, strict)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "fail unless every slot fits without fallback")

	return cmd
}

// instanceFit is the containment diagnostic of one instance.
type instanceFit struct {
	Index     int
	Slots     int
	Spacing   float64
	Offset    string
	Extent    string
	Overshoot float64 // worst per-axis distance beyond the boundary; <= 0 inside
}

// fits reports whether the instance lies inside within tol.
func (f instanceFit) fits(tol float64) bool { return f.Overshoot <= tol }

// measureFit computes the diagnostic of every instance of snap against the
// scene boundary it was generated for.
func measureFit(snap *snapshot.Snapshot) []instanceFit {
	b := layout.Boundary{
		Center:   snap.Scene.Anchor,
		Size:     snap.Scene.Size,
		Rotation: snap.Scene.Rotation(),
	}
	out := make([]instanceFit, 0, len(snap.Instances))
	for _, in := range snap.Instances {
		f := instanceFit{
			Index:     in.Index,
			Slots:     len(in.Slots),
			Spacing:   in.Spacing,
			Offset:    fmt.Sprintf("%.2f, %.2f", in.Offset.X, in.Offset.Y),
			Overshoot: math.Inf(-1),
		}
		size := in.Bounds.Size()
		f.Extent = fmt.Sprintf("%.2f × %.2f", size.X, size.Y)
		for _, sl := range in.Slots {
			o := b.Overshoot(sl.World)
			f.Overshoot = max(f.Overshoot, o.X, o.Y)
		}
		if len(in.Slots) == 0 {
			f.Overshoot = 0
		}
		out = append(out, f)
	}
	return out
}

func (c *CLI) runCheck(ctx context.Context, opts pipeline.Options, strict bool) error {
	runner, err := c.newRunner(ctx)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	snap, cached, err := runner.GenerateLayoutWithCacheInfo(ctx, opts)
	if err != nil {
		return err
	}
	fits := measureFit(snap)
	prog.done(fmt.Sprintf("Checked %s", plural(len(fits), "instance")))

	tol := snap.Tuning.Tolerance
	outside := 0
	for _, f := range fits {
		if !f.fits(tol) {
			outside++
		}
	}

	printKeyValue("Shape", snap.Settings.Shape.String())
	printKeyValue("Boundary", fmt.Sprintf("%.2f × %.2f", snap.Scene.Size.X, snap.Scene.Size.Y))
	printKeyValue("Slots", strconv.Itoa(snap.SlotCount()))
	printKeyValue("Iterations", strconv.Itoa(snap.Solver.Iterations))
	printKeyValue("Separation", fmt.Sprintf("%.3f", snap.Solver.Separation))
	printKeyValue("Cache", map[bool]string{true: iconCached, false: iconFresh}[cached])
	printNewline()
	if len(fits) > 0 {
		fmt.Println(fitTable(fits, tol))
		printNewline()
	}

	switch {
	case snap.Solver.Fallback:
		printWarning("Fallback grid applied; the shape could not fit at minimum spacing")
	case outside > 0:
		printWarning("%s outside the boundary", plural(outside, "instance"))
	case !opts.Tuning.ConstrainToBoundary:
		printInfo("Boundary solver disabled")
	default:
		printSuccess("All slots inside the boundary")
	}

	if strict && (snap.Solver.Fallback || outside > 0) {
		return fmt.Errorf("layout does not fit its boundary")
	}
	return nil
}

// fitTable renders the per-instance diagnostic.
func fitTable(fits []instanceFit, tol float64) string {
	rows := make([][]string, len(fits))
	for i, f := range fits {
		status := iconSuccess
		if !f.fits(tol) {
			status = iconError
		}
		rows[i] = []string{
			strconv.Itoa(f.Index),
			strconv.Itoa(f.Slots),
			fmt.Sprintf("%.3f", f.Spacing),
			f.Offset,
			f.Extent,
			fmt.Sprintf("%+.3f", f.Overshoot),
			status,
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Slots", "Spacing", "Offset", "Extent", "Overshoot", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return instanceStyle(fits[row].Index).Bold(true)
			}
			if col == 6 {
				if fits[row].fits(tol) {
					return styleIconSuccess
				}
				return styleIconError
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}
