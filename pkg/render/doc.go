// Package render draws layout snapshots.
//
// # Overview
//
// A snapshot is converted to Graphviz DOT with every node pinned at its
// world position ([ToDOT]), then laid out by neato without moving anything
// and rendered in-process to SVG ([RenderSVG]). The drawing shows:
//
//   - the boundary rectangle, rotated with the scene heading
//   - each instance's bounding box, dotted
//   - every slot, colored by instance; occupied slots are filled
//   - the anchor and a short heading marker
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert SVG with the external rsvg-convert tool (from
// librsvg):
//
//	dot := render.ToDOT(snap, render.Options{Labels: true})
//	svg, err := render.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [Render] dispatches on a format name and is what the pipeline uses.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for SVG rendering. PDF
// and PNG conversion requires librsvg (rsvg-convert).
package render
