package engine

import (
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/events"
	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/settings"
)

func newHost() *StaticHost {
	return NewStaticHost(geom.V3(10, 20, 0), geom.V2(60, 40), geom.Rotation{})
}

func newEngine(t *testing.T, s settings.Settings) *Engine {
	t.Helper()
	e, err := New(newHost(), WithSettings(s))
	require.NoError(t, err)
	e.Regenerate(false)
	return e
}

func squares(n int) settings.Settings {
	s := settings.Defaults()
	s.Shape = settings.Square
	s.SquareSize = 3
	s.SquareSpacing = geom.V2(2, 2)
	s.Instances = n
	return s
}

func TestNewRequiresHost(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestNewRejectsInvalidTuning(t *testing.T) {
	tu := settings.DefaultTuning()
	tu.DampingCap = 2
	_, err := New(newHost(), WithTuning(tu))
	assert.Error(t, err)
}

func TestEmptyBeforeFirstPass(t *testing.T) {
	e, err := New(newHost())
	require.NoError(t, err)
	assert.True(t, e.Pending())
	assert.Nil(t, e.TryOccupySlot(1))
	assert.Empty(t, e.AvailableSlots())
	assert.Equal(t, uuid.Nil, e.Generation())
	assert.Equal(t, Idle, e.State())
}

func TestVShapeOfFive(t *testing.T) {
	e := newEngine(t, settings.Defaults())
	total, occupied := e.SlotCount()
	assert.Equal(t, 5, total)
	assert.Equal(t, 0, occupied)

	infos := e.Instances()
	require.Len(t, infos, 1)
	assert.Equal(t, 0.0, infos[0].Bounds.Min.Y)
	assert.Equal(t, 1.0, infos[0].Spacing)
	assert.True(t, e.WithinBounds())
}

func TestDeterministic(t *testing.T) {
	for _, s := range []settings.Settings{
		settings.Defaults(),
		squares(3),
		squares(7),
		func() settings.Settings {
			s := squares(1)
			s.Position = settings.Random
			s.Seed = 7
			return s
		}(),
	} {
		a := newEngine(t, s).Snapshot()
		b := newEngine(t, s).Snapshot()
		assert.Equal(t, a.Instances, b.Instances, s.Shape.String())
		assert.NotEqual(t, a.Generation, b.Generation)
	}
}

func TestNoDoubleOccupy(t *testing.T) {
	e := newEngine(t, squares(2))
	total, _ := e.SlotCount()
	require.Equal(t, 18, total)

	seen := map[*formation.Slot]bool{}
	for i := 0; i < total; i++ {
		s := e.TryOccupySlot(formation.Occupant(i + 1))
		require.NotNil(t, s)
		require.False(t, seen[s])
		seen[s] = true
	}
	assert.Nil(t, e.TryOccupySlot(99))
	assert.Empty(t, e.AvailableSlots())
}

func TestOccupancyInvariant(t *testing.T) {
	e := newEngine(t, squares(2))
	e.TryOccupySlot(1)
	e.TryOccupySlotInFormation(2, 1)
	e.ReleaseSlot(e.TryOccupySlot(3))

	snap := e.Snapshot()
	occupied := 0
	for _, in := range snap.Instances {
		for _, s := range in.Slots {
			if s.Occupied() {
				occupied++
				assert.NotZero(t, s.Occupant)
			}
		}
	}
	assert.Equal(t, 2, occupied)
	_, n := e.SlotCount()
	assert.Equal(t, 2, n)
}

func TestReleaseIdempotent(t *testing.T) {
	e := newEngine(t, squares(1))
	s := e.TryOccupySlot(5)
	require.NotNil(t, s)

	e.ReleaseSlot(s)
	before := e.Snapshot()
	e.ReleaseSlot(s)
	e.ReleaseSlot(nil)
	after := e.Snapshot()
	assert.Equal(t, before.Instances, after.Instances)
}

func TestStaleSlotsAfterRegenerate(t *testing.T) {
	e := newEngine(t, squares(1))
	old := e.TryOccupySlot(1)
	require.NotNil(t, old)

	e.Regenerate(false)
	_, occupied := e.SlotCount()
	assert.Equal(t, 0, occupied, "occupancy does not survive a rebuild")

	e.ReleaseSlot(old)
	assert.False(t, e.OccupySpecificSlot(old, 2))
	assert.Empty(t, e.SlotsOf(1))
}

func TestOccupySpecificSlot(t *testing.T) {
	e := newEngine(t, squares(1))
	s, ok := e.Slot(4)
	require.True(t, ok)
	assert.True(t, e.OccupySpecificSlot(s, 1))
	assert.False(t, e.OccupySpecificSlot(s, 2))
	assert.Equal(t, []*formation.Slot{s}, e.SlotsOf(1))
	assert.Equal(t, 1, e.ReleaseOccupant(1))
}

func TestNearestAvailableSlot(t *testing.T) {
	e := newEngine(t, squares(1))
	s, _ := e.Slot(0)
	target := e.SlotWorldPosition(s)

	got := e.NearestAvailableSlot(target)
	assert.Same(t, s, got)

	e.OccupySpecificSlot(s, 1)
	assert.NotSame(t, s, e.NearestAvailableSlot(target))
}

func TestWorldPositionFollowsHost(t *testing.T) {
	host := newHost()
	e, err := New(host, WithSettings(squares(1)))
	require.NoError(t, err)
	e.Regenerate(false)

	s, _ := e.Slot(0)
	before := e.SlotWorldPosition(s)
	host.Move(geom.V3(110, 20, 0))
	after := e.SlotWorldPosition(s)
	assert.InDelta(t, 100, after.X-before.X, 1e-9)

	host.Move(geom.V3(0, 0, 0))
	host.Face(geom.V2(-1, 0))
	p := e.SlotWorldPosition(s)
	// local (-2,-2) turned a quarter to the left
	assert.InDelta(t, 2, p.X, 1e-9)
	assert.InDelta(t, -2, p.Y, 1e-9)
}

func TestContainmentOrFallback(t *testing.T) {
	tight := settings.Defaults()
	tight.Shape = settings.Grid
	tight.GridColumns = 10
	tight.GridRows = 10
	tight.GridFillsBoundary = true

	cases := []struct {
		name string
		s    settings.Settings
		size geom.Vec2
	}{
		{"v", settings.Defaults(), geom.V2(60, 40)},
		{"squares", squares(4), geom.V2(12, 12)},
		{"many", squares(9), geom.V2(30, 30)},
		{"circle", func() settings.Settings {
			s := settings.Defaults()
			s.Shape = settings.Circle
			s.CircleRadius = 20
			s.Instances = 2
			return s
		}(), geom.V2(20, 20)},
		{"unfittable grid", tight, geom.V2(2, 2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host := NewStaticHost(geom.Vec3{}, tc.size, geom.Yaw(0.3))
			e, err := New(host, WithSettings(tc.s))
			require.NoError(t, err)
			res := e.Regenerate(false)

			for _, steps := range res.Report.Trace {
				for i := 1; i < len(steps); i++ {
					assert.LessOrEqual(t, steps[i], steps[i-1])
				}
			}
			if e.WithinBounds() {
				return
			}
			require.True(t, res.Report.Fallback, "neither contained nor fallen back")
			for _, in := range e.Instances() {
				assert.Equal(t, geom.Vec2{}, in.Offset)
				assert.Equal(t, e.Tuning().MinSpacingMultiplier, in.Spacing)
			}
		})
	}
}

func TestUnfittableGridPublishesFallback(t *testing.T) {
	s := settings.Defaults()
	s.Shape = settings.Grid
	s.GridColumns = 10
	s.GridRows = 10
	s.GridFillsBoundary = true

	e, err := New(NewStaticHost(geom.Vec3{}, geom.V2(2, 2), geom.Rotation{}), WithSettings(s))
	require.NoError(t, err)
	q := events.NewQueue(8)
	e.Subscribe(q.Listener())

	res := e.Regenerate(true)
	assert.True(t, res.Report.Fallback)

	got := q.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, events.FallbackApplied, got[0].Kind)
	assert.Equal(t, events.LayoutChanged, got[1].Kind)
	assert.Equal(t, 100, got[1].Slots)
}

func TestApplyAndTick(t *testing.T) {
	e, err := New(newHost())
	require.NoError(t, err)

	var got []events.Event
	e.Subscribe(func(ev events.Event) { got = append(got, ev) })

	assert.True(t, e.Tick(), "first tick builds the initial layout")
	assert.False(t, e.Tick())
	require.Len(t, got, 1)
	assert.Equal(t, e.Generation(), got[0].Generation)

	changed, err := e.Apply(settings.Defaults())
	require.NoError(t, err)
	assert.False(t, changed, "equal settings do not regenerate")
	assert.False(t, e.Tick())

	changed, err = e.Apply(squares(2))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, e.Pending())
	assert.True(t, e.Tick())
	assert.Len(t, got, 2)

	total, _ := e.SlotCount()
	assert.Equal(t, 18, total)
}

func TestApplyRejectsInvalid(t *testing.T) {
	e := newEngine(t, settings.Defaults())
	bad := settings.Defaults()
	bad.VSpacing = geom.V2(math.NaN(), 1)
	changed, err := e.Apply(bad)
	assert.Error(t, err)
	assert.False(t, changed)
	assert.True(t, e.Settings().Equal(settings.Defaults()))
}

func TestSetTuning(t *testing.T) {
	e := newEngine(t, settings.Defaults())
	tu := e.Tuning()
	changed, err := e.SetTuning(tu)
	require.NoError(t, err)
	assert.False(t, changed)

	tu.ConstrainToBoundary = false
	changed, err = e.SetTuning(tu)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestListenerMayReenter(t *testing.T) {
	e, err := New(newHost(), WithSettings(squares(1)))
	require.NoError(t, err)

	var claimed *formation.Slot
	e.Subscribe(func(ev events.Event) {
		if ev.Kind == events.LayoutChanged {
			claimed = e.TryOccupySlot(42)
		}
	})
	e.Regenerate(true)
	require.NotNil(t, claimed)
	assert.Equal(t, formation.Occupant(42), claimed.Occupant())
}

func TestConcurrentOccupy(t *testing.T) {
	e := newEngine(t, squares(4))
	total, _ := e.SlotCount()

	var wg sync.WaitGroup
	results := make(chan *formation.Slot, total*2)
	for i := 0; i < total*2; i++ {
		wg.Add(1)
		go func(o formation.Occupant) {
			defer wg.Done()
			if s := e.TryOccupySlot(o); s != nil {
				results <- s
			}
		}(formation.Occupant(i + 1))
	}
	wg.Wait()
	close(results)

	seen := map[*formation.Slot]bool{}
	for s := range results {
		assert.False(t, seen[s])
		seen[s] = true
	}
	assert.Len(t, seen, total)
}

func TestSceneHost(t *testing.T) {
	h := SceneHost(settings.Scene{Size: geom.V2(10, 5), Heading: 90})
	assert.InDelta(t, math.Pi/2, h.Orientation().Yaw, 1e-12)
	assert.Equal(t, geom.V2(10, 5), h.BoundarySize())

	sc := sceneOf(h)
	assert.InDelta(t, 90, sc.Heading, 1e-9)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "constraining", Constraining.String())
	assert.Equal(t, "unknown", State(12).String())
}
