package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// DefaultScale is the drawing size of one world unit, in inches.
const DefaultScale = 0.25

// Options configures DOT generation.
type Options struct {
	// Scale is inches per world unit. Zero uses DefaultScale.
	Scale float64

	// Labels prints slot IDs, and occupant handles for occupied slots.
	Labels bool
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return DefaultScale
	}
	return o.Scale
}

// palette cycles across instances.
var palette = []string{
	"#4e79a7", "#f28e2b", "#59a14f", "#e15759",
	"#76b7b2", "#edc948", "#b07aa1", "#9c755f",
}

func instanceColor(i int) string { return palette[i%len(palette)] }

// ToDOT converts a snapshot to an undirected Graphviz graph whose nodes are
// pinned at their world positions. Only neato honors the pins; the graph
// selects it with the layout attribute.
func ToDOT(s *snapshot.Snapshot, opts Options) string {
	d := dotWriter{scale: opts.scale()}
	d.line("graph formation {")
	d.line(`  layout=neato;`)
	d.line(`  splines=line;`)
	d.line(`  outputorder=edgesfirst;`)
	d.line(`  bgcolor="transparent";`)
	d.line(`  node [shape=circle, fixedsize=true, width=0.2, label="", style=filled, fontsize=8];`)
	d.line(`  edge [penwidth=1];`)
	d.line("")

	rot := s.Scene.Rotation()
	anchor := s.Scene.Anchor.Flat()
	world := func(local geom.Vec2) geom.Vec2 { return anchor.Add(rot.Apply2(local)) }

	half := s.Scene.Size.Half()
	d.rect("boundary", [4]geom.Vec2{
		world(geom.V2(-half.X, -half.Y)),
		world(geom.V2(half.X, -half.Y)),
		world(geom.V2(half.X, half.Y)),
		world(geom.V2(-half.X, half.Y)),
	}, `color="#888888", style=dashed`)

	for _, in := range s.Instances {
		if len(in.Slots) == 0 {
			continue
		}
		b := in.Bounds.Translate(in.Offset)
		d.rect(fmt.Sprintf("inst%d", in.Index), [4]geom.Vec2{
			world(b.Min),
			world(geom.V2(b.Max.X, b.Min.Y)),
			world(b.Max),
			world(geom.V2(b.Min.X, b.Max.Y)),
		}, fmt.Sprintf("color=%q, style=dotted", instanceColor(in.Index)))
	}

	d.node("anchor", anchor, `shape=point, width=0.08, color=black`)
	d.node("heading", world(geom.V2(0, min(half.Y, 2))), `shape=point, width=0.01, style=invis`)
	d.line(`  "anchor" -- "heading" [color=black, penwidth=2];`)
	d.line("")

	for _, in := range s.Instances {
		color := instanceColor(in.Index)
		for _, sl := range in.Slots {
			attrs := []string{fmt.Sprintf("color=%q", color)}
			if sl.Occupied() {
				attrs = append(attrs, fmt.Sprintf("fillcolor=%q", color), `fontcolor="white"`)
			} else {
				attrs = append(attrs, `fillcolor="white"`)
			}
			if opts.Labels {
				attrs = append(attrs, fmt.Sprintf("label=%q", slotLabel(sl)))
			}
			d.node(fmt.Sprintf("slot%d", sl.ID), sl.World.Flat(), strings.Join(attrs, ", "))
		}
	}

	d.line("}")
	return d.buf.String()
}

func slotLabel(sl snapshot.Slot) string {
	if sl.Occupied() {
		return fmt.Sprintf("%d\n#%d", sl.ID, sl.Occupant)
	}
	return fmt.Sprintf("%d", sl.ID)
}

type dotWriter struct {
	buf   bytes.Buffer
	scale float64
}

func (d *dotWriter) line(s string) {
	d.buf.WriteString(s)
	d.buf.WriteByte('\n')
}

// pos formats a pinned position in inches.
func (d *dotWriter) pos(p geom.Vec2) string {
	return fmt.Sprintf("%s,%s!", num(p.X*d.scale), num(p.Y*d.scale))
}

func (d *dotWriter) node(id string, p geom.Vec2, attrs string) {
	fmt.Fprintf(&d.buf, "  %q [pos=%q, %s];\n", id, d.pos(p), attrs)
}

// rect draws a closed polygon through four invisible corner nodes.
func (d *dotWriter) rect(prefix string, corners [4]geom.Vec2, edgeAttrs string) {
	for i, c := range corners {
		d.node(fmt.Sprintf("%s_%d", prefix, i), c, "shape=point, width=0.01, style=invis")
	}
	for i := range corners {
		fmt.Fprintf(&d.buf, "  %q -- %q [%s];\n",
			fmt.Sprintf("%s_%d", prefix, i), fmt.Sprintf("%s_%d", prefix, (i+1)%4), edgeAttrs)
	}
	d.line("")
}

// num formats f with at most four decimals, folding negative zero.
func num(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
