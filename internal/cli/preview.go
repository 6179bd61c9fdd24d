package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/pkg/engine"
	ferrors "github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/events"
	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/layout"
	"github.com/matzehuels/formation/pkg/pipeline"
	"github.com/matzehuels/formation/pkg/settings"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// previewCommand creates the preview command, an interactive terminal view
// of a live engine.
func (c *CLI) previewCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "preview [settings.toml]",
		Short: "Explore a formation interactively in the terminal",
		Long: `Explore a formation interactively in the terminal.

The boundary is drawn as a frame with every slot plotted inside it. Slots can
be claimed and released, the shape and instance count changed and the host
turned, with the layout regenerating live.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args)
			if err != nil {
				return err
			}
			return c.runPreview(cmd.Context(), opts)
		},
	}

	flags.register(cmd)
	return cmd
}

func (c *CLI) runPreview(ctx context.Context, opts pipeline.Options) error {
	m, err := newPreviewModel(opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// =============================================================================
// Plot
// =============================================================================

// cell is one character of the plotted boundary.
type cell struct {
	slot     int // slot ID, -1 for empty space
	instance int
	occupied bool
	outside  bool // clamped onto the edge from beyond the boundary
}

// plot maps every slot of snap onto a cols×rows character grid covering the
// boundary b. Row 0 is the far (+Y) edge. When slots share a cell the one
// with the lowest ID wins.
func plot(snap *snapshot.Snapshot, b layout.Boundary, cols, rows int) [][]cell {
	grid := make([][]cell, rows)
	for r := range grid {
		grid[r] = make([]cell, cols)
		for c := range grid[r] {
			grid[r][c] = cell{slot: -1}
		}
	}
	if cols < 1 || rows < 1 || !b.Size.Positive() {
		return grid
	}

	half := b.Half()
	for _, in := range snap.Instances {
		for _, sl := range in.Slots {
			p := b.Local(sl.World)
			fx := (p.X + half.X) / b.Size.X
			fy := (half.Y - p.Y) / b.Size.Y
			outside := fx < 0 || fx > 1 || fy < 0 || fy > 1
			col := clampInt(int(math.Round(fx*float64(cols-1))), 0, cols-1)
			row := clampInt(int(math.Round(fy*float64(rows-1))), 0, rows-1)
			if cur := grid[row][col]; cur.slot >= 0 && cur.slot < sl.ID {
				continue
			}
			grid[row][col] = cell{slot: sl.ID, instance: in.Index, occupied: sl.Occupied(), outside: outside}
		}
	}
	return grid
}

func clampInt(v, lo, hi int) int { return max(lo, min(v, hi)) }

// =============================================================================
// Model
// =============================================================================

var (
	previewCursorStyle  = lipgloss.NewStyle().Reverse(true)
	previewOutsideStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	previewFrameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
)

const (
	glyphFree     = "○"
	glyphOccupied = "●"
	glyphOutside  = "!"
	glyphEmpty    = "·"

	headingStep = 15.0
)

// previewModel is the bubbletea model of the preview command. It owns a live
// engine against a static host.
type previewModel struct {
	engine *engine.Engine
	host   *engine.StaticHost
	queue  *events.Queue

	heading  float64
	cursor   int // index into the ID-ordered slot list
	next     formation.Occupant
	cols     int
	rows     int
	status   string
	lastKind string
}

func newPreviewModel(opts pipeline.Options) (*previewModel, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	host := engine.SceneHost(opts.Scene)
	e, err := pipeline.NewEngine(opts, host)
	if err != nil {
		return nil, err
	}
	m := &previewModel{
		engine:  e,
		host:    host,
		queue:   events.NewQueue(0),
		heading: opts.Scene.Heading,
		next:    1,
		cols:    60,
		rows:    20,
	}
	e.Subscribe(m.queue.Listener())
	e.Regenerate(true)
	m.drain()
	return m, nil
}

func (m *previewModel) Init() tea.Cmd { return nil }

func (m *previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l", "down", "j":
			m.move(1)
		case "left", "h", "up", "k":
			m.move(-1)
		case "enter", " ":
			m.toggle()
		case "a":
			if s := m.engine.TryOccupySlot(m.next); s != nil {
				m.status = fmt.Sprintf("occupant %d took slot %d", m.next, s.ID())
				m.next++
			} else {
				m.status = "no free slot"
			}
		case "x":
			n := 0
			for _, in := range m.engine.Snapshot().Instances {
				for _, sl := range in.Slots {
					if s, ok := m.engine.Slot(sl.ID); ok && sl.Occupied() {
						m.engine.ReleaseSlot(s)
						n++
					}
				}
			}
			m.status = fmt.Sprintf("released %s", plural(n, "slot"))
		case "s":
			m.apply(func(s *settings.Settings) {
				s.Shape = settings.Shapes[(int(s.Shape)+1)%len(settings.Shapes)]
			})
		case "+", "=":
			m.apply(func(s *settings.Settings) { s.Instances++ })
		case "-":
			m.apply(func(s *settings.Settings) { s.Instances = max(s.Instances-1, 1) })
		case "[":
			m.turn(headingStep)
		case "]":
			m.turn(-headingStep)
		case "g":
			m.engine.Regenerate(true)
			m.status = "regenerated"
		}
		m.drain()
	case tea.WindowSizeMsg:
		m.cols = max(msg.Width-4, 10)
		m.rows = max(msg.Height-10, 5)
	}
	return m, nil
}

// slotIDs lists the slot IDs of the current layout in order.
func (m *previewModel) slotIDs() []int {
	var ids []int
	for _, in := range m.engine.Snapshot().Instances {
		for _, sl := range in.Slots {
			ids = append(ids, sl.ID)
		}
	}
	return ids
}

func (m *previewModel) move(d int) {
	n := len(m.slotIDs())
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = ((m.cursor+d)%n + n) % n
}

// selected returns the slot under the cursor.
func (m *previewModel) selected() (*formation.Slot, bool) {
	ids := m.slotIDs()
	if len(ids) == 0 {
		return nil, false
	}
	return m.engine.Slot(ids[min(m.cursor, len(ids)-1)])
}

func (m *previewModel) toggle() {
	s, ok := m.selected()
	if !ok {
		return
	}
	if info, _ := m.engine.Describe(s); info.Occupant != formation.NoOccupant {
		m.engine.ReleaseSlot(s)
		m.status = fmt.Sprintf("released slot %d", s.ID())
		return
	}
	if m.engine.OccupySpecificSlot(s, m.next) {
		m.status = fmt.Sprintf("occupant %d took slot %d", m.next, s.ID())
		m.next++
	}
}

// apply edits the active settings and regenerates at once.
func (m *previewModel) apply(edit func(*settings.Settings)) {
	s := m.engine.Settings()
	edit(&s)
	if _, err := m.engine.Apply(s); err != nil {
		m.status = ferrors.UserMessage(err)
		return
	}
	if m.engine.Tick() {
		m.cursor = 0
		m.status = fmt.Sprintf("%s × %d", s.Shape, s.InstanceCount())
	}
}

// turn rotates the host. Slots follow without regenerating.
func (m *previewModel) turn(deg float64) {
	m.heading = math.Mod(m.heading+deg+360, 360)
	m.host.Orient(settings.Scene{Heading: m.heading}.Rotation())
	m.status = fmt.Sprintf("heading %.0f°", m.heading)
}

func (m *previewModel) drain() {
	if evs := m.queue.Drain(); len(evs) > 0 {
		m.lastKind = evs[len(evs)-1].Kind.String()
	}
}

func (m *previewModel) boundary() layout.Boundary {
	return layout.Boundary{
		Center:   m.host.Anchor(),
		Size:     m.host.BoundarySize(),
		Rotation: m.host.Orientation(),
	}
}

func (m *previewModel) View() string {
	snap := m.engine.Snapshot()
	ids := m.slotIDs()
	cursorID := -1
	if len(ids) > 0 {
		cursorID = ids[min(m.cursor, len(ids)-1)]
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render(fmt.Sprintf("Formation · %s", snap.Settings.Shape)))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d/%d occupied · heading %.0f°",
		snap.OccupiedCount(), snap.SlotCount(), m.heading)))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←/→ select  ⏎ claim/release  a auto  x release all  s shape  +/- instances  [/] turn  g regenerate  q quit"))
	b.WriteString("\n")

	var lines []string
	for _, row := range plot(snap, m.boundary(), m.cols, m.rows) {
		var line strings.Builder
		for _, c := range row {
			line.WriteString(renderCell(c, cursorID))
		}
		lines = append(lines, line.String())
	}
	b.WriteString(previewFrameStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	if snap.Solver.Fallback {
		b.WriteString(StyleWarning.Render("fallback grid applied") + "  ")
	}
	if info, ok := m.describeCursor(); ok {
		b.WriteString(StyleValue.Render(info))
	}
	if m.status != "" {
		b.WriteString("\n" + StyleHighlight.Render(m.status))
	}
	if m.lastKind != "" {
		b.WriteString("\n" + StyleDim.Render("last event: "+m.lastKind))
	}
	return b.String()
}

func (m *previewModel) describeCursor() (string, bool) {
	s, ok := m.selected()
	if !ok {
		return "", false
	}
	info, ok := m.engine.Describe(s)
	if !ok {
		return "", false
	}
	occ := "free"
	if info.Occupant != formation.NoOccupant {
		occ = fmt.Sprintf("occupant %d", info.Occupant)
	}
	return fmt.Sprintf("slot %d · instance %d · world (%.2f, %.2f) · %s",
		info.ID, info.Instance, info.World.X, info.World.Y, occ), true
}

func renderCell(c cell, cursorID int) string {
	if c.slot < 0 {
		return StyleDim.Render(glyphEmpty)
	}
	glyph := glyphFree
	if c.occupied {
		glyph = glyphOccupied
	}
	style := instanceStyle(c.instance)
	if c.outside {
		glyph = glyphOutside
		style = previewOutsideStyle
	}
	if c.slot == cursorID {
		style = style.Inherit(previewCursorStyle)
	}
	return style.Render(glyph)
}

