package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/formation/pkg/engine"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/pipeline"
	"github.com/matzehuels/formation/pkg/settings"
	"github.com/matzehuels/formation/pkg/snapshot"
)

func newServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(Config{Options: pipeline.Options{Scene: settings.Scene{Size: geom.V2(40, 40)}}})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	_, ts := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetLayout(t *testing.T) {
	_, ts := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/v1/layout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap, err := snapshot.ReadJSON(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultVCount, snap.SlotCount())
	assert.NotEmpty(t, snap.Generation)
}

func TestRenderLayoutDOT(t *testing.T) {
	_, ts := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/v1/layout/dot?labels=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.True(t, strings.HasPrefix(buf.String(), "graph formation {"))
}

func TestRenderLayoutRejectsFormat(t *testing.T) {
	_, ts := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/v1/layout/gif", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_FORMAT", string(decode[errorResponse](t, resp).Code))
}

func TestOccupyAndRelease(t *testing.T) {
	_, ts := newServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[engine.SlotInfo](t, resp)
	assert.Equal(t, 0, first.ID)
	assert.EqualValues(t, 7, first.Occupant)

	// Specific slot already held.
	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": 8, "slot": 0})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": 8, "slot": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, decode[engine.SlotInfo](t, resp).ID)

	free := decode[[]engine.SlotInfo](t, do(t, http.MethodGet, ts.URL+"/v1/slots?available=true", nil))
	assert.Len(t, free, settings.DefaultVCount-2)

	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/release", map[string]any{"occupant": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[releaseResponse](t, resp).Released)

	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/release", map[string]any{"slot": 3})
	assert.Equal(t, 1, decode[releaseResponse](t, resp).Released)

	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/release", map[string]any{"slot": 3})
	assert.Equal(t, 0, decode[releaseResponse](t, resp).Released, "release is idempotent")
}

func TestOccupyValidation(t *testing.T) {
	_, ts := newServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": 1, "slot": 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": 1, "bogus": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/slots/release", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOccupyUntilFull(t *testing.T) {
	_, ts := newServer(t)
	for i := 1; i <= settings.DefaultVCount; i++ {
		resp := do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": i})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := do(t, http.MethodPost, ts.URL+"/v1/slots/occupy", map[string]any{"occupant": 99})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/v1/slots/nearest", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNearestSlot(t *testing.T) {
	s, ts := newServer(t)
	slots := s.Engine().AvailableSlots()
	require.NotEmpty(t, slots)
	want, _ := s.Engine().Describe(slots[len(slots)-1])

	url := ts.URL + "/v1/slots/nearest?x=" + ftoa(want.World.X) + "&y=" + ftoa(want.World.Y)
	resp := do(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, want.ID, decode[engine.SlotInfo](t, resp).ID)

	resp = do(t, http.MethodGet, ts.URL+"/v1/slots/nearest?x=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSlot(t *testing.T) {
	_, ts := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/v1/slots/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[engine.SlotInfo](t, resp).ID)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/v1/slots/50", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/v1/slots/x", nil).StatusCode)
}

func TestPutSettingsRegenerates(t *testing.T) {
	s, ts := newServer(t)
	before := s.Engine().Generation()

	resp := do(t, http.MethodPut, ts.URL+"/v1/settings", map[string]any{"shape": "square", "instances": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decode[generationResponse](t, resp)
	assert.True(t, gen.Changed)
	assert.Equal(t, 2*settings.DefaultSquareSize*settings.DefaultSquareSize, gen.Slots)
	assert.NotEqual(t, before.String(), gen.Generation)

	// Same document again is a no-op.
	resp = do(t, http.MethodPut, ts.URL+"/v1/settings", map[string]any{"shape": "square", "instances": 2})
	assert.False(t, decode[generationResponse](t, resp).Changed)

	resp = do(t, http.MethodPut, ts.URL+"/v1/settings", map[string]any{"shape": "hexagon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	cur := decode[settings.Settings](t, do(t, http.MethodGet, ts.URL+"/v1/settings", nil))
	assert.Equal(t, settings.Square, cur.Shape)
}

func TestPutHost(t *testing.T) {
	s, ts := newServer(t)
	slot, ok := s.Engine().Slot(0)
	require.True(t, ok)
	before, _ := s.Engine().Describe(slot)

	resp := do(t, http.MethodPut, ts.URL+"/v1/host", map[string]any{"anchor": map[string]float64{"x": 10, "y": 0, "z": 0}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[generationResponse](t, resp).Changed)

	after, ok := s.Engine().Describe(slot)
	require.True(t, ok, "moving the host keeps slots valid")
	assert.InDelta(t, before.World.X+10, after.World.X, 1e-9)

	resp = do(t, http.MethodPut, ts.URL+"/v1/host", map[string]any{"size": map[string]float64{"x": 20, "y": 20}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[generationResponse](t, resp).Changed)
	_, ok = s.Engine().Describe(slot)
	assert.False(t, ok, "resizing regenerates")

	resp = do(t, http.MethodPut, ts.URL+"/v1/host", map[string]any{"size": map[string]float64{"x": -1, "y": 20}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutHostHeading(t *testing.T) {
	s, ts := newServer(t)

	resp := do(t, http.MethodPut, ts.URL+"/v1/host", map[string]any{"heading": 370.0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 10*math.Pi/180, s.host.Orientation().Yaw, 1e-9)

	resp = do(t, http.MethodPut, ts.URL+"/v1/host", map[string]any{"heading": -90.0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 270*math.Pi/180, s.host.Orientation().Yaw, 1e-9)

	resp = do(t, http.MethodPut, ts.URL+"/v1/host", map[string]any{"heading": 1e308})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	yaw := s.host.Orientation().Yaw
	assert.GreaterOrEqual(t, yaw, 0.0)
	assert.Less(t, yaw, 2*math.Pi)
}

func TestPutSettingsRejectsOversizedLayout(t *testing.T) {
	s, ts := newServer(t)
	before := s.Engine().Generation()

	for _, body := range []map[string]any{
		{"shape": "square", "square_size": 1 << 32},
		{"shape": "triangle", "triangle_rows": 10000},
		{"shape": "square", "square_size": 100, "instances": 10000},
	} {
		resp := do(t, http.MethodPut, ts.URL+"/v1/settings", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%v", body)
	}
	assert.Equal(t, before, s.Engine().Generation())
}

func TestEventsAndBounds(t *testing.T) {
	_, ts := newServer(t)

	evs := decode[eventsResponse](t, do(t, http.MethodGet, ts.URL+"/v1/events", nil))
	require.Len(t, evs.Events, 1, "initial pass publishes one event")
	assert.Equal(t, "layout_changed", evs.Events[0].Kind.String())

	do(t, http.MethodPost, ts.URL+"/v1/regenerate", nil)
	evs = decode[eventsResponse](t, do(t, http.MethodGet, ts.URL+"/v1/events", nil))
	assert.Len(t, evs.Events, 1)

	evs = decode[eventsResponse](t, do(t, http.MethodGet, ts.URL+"/v1/events", nil))
	assert.Empty(t, evs.Events)

	b := decode[boundsResponse](t, do(t, http.MethodGet, ts.URL+"/v1/bounds", nil))
	assert.True(t, b.Within)
	assert.Equal(t, settings.DefaultVCount, b.Total)
	assert.Zero(t, b.Occupied)
}

func TestListInstances(t *testing.T) {
	_, ts := newServer(t)
	infos := decode[[]engine.InstanceInfo](t, do(t, http.MethodGet, ts.URL+"/v1/instances", nil))
	require.Len(t, infos, 1)
	assert.Equal(t, settings.DefaultVCount, infos[0].Slots)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(""))
	assert.Equal(t, http.StatusNotImplemented, statusFor("UNSUPPORTED"))
}

func ftoa(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
