package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/formation/pkg/engine"
	"github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/events"
	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/pipeline"
	"github.com/matzehuels/formation/pkg/settings"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// =============================================================================
// Layout
// =============================================================================

func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := snapshot.WriteJSON(s.engine.Snapshot(), w); err != nil {
		s.logger.Error("write snapshot", "error", err)
	}
}

var contentTypes = map[string]string{
	pipeline.FormatDOT: "text/vnd.graphviz",
	pipeline.FormatSVG: "image/svg+xml",
	pipeline.FormatPNG: "image/png",
	pipeline.FormatPDF: "application/pdf",
}

func (s *Server) renderLayout(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	ct, ok := contentTypes[format]
	if !ok {
		writeError(w, errors.New(errors.ErrCodeInvalidFormat, "unsupported render format: %q", format))
		return
	}
	q := r.URL.Query()
	opts := pipeline.Options{Formats: []string{format}, Labels: q.Get("labels") == "true"}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "scale must be a positive number: %q", v))
			return
		}
		opts.Scale = scale
	}

	artifacts, err := s.runner.Render(r.Context(), s.engine.Snapshot(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(artifacts[format])
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Instances())
}

type boundsResponse struct {
	Within    bool    `json:"within"`
	Converged bool    `json:"converged"`
	Fallback  bool    `json:"fallback"`
	Total     int     `json:"total"`
	Occupied  int     `json:"occupied"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

func (s *Server) getBounds(w http.ResponseWriter, r *http.Request) {
	total, occupied := s.engine.SlotCount()
	last := s.engine.LastResult()
	size := s.host.BoundarySize()
	writeJSON(w, http.StatusOK, boundsResponse{
		Within:    s.engine.WithinBounds(),
		Converged: last.Report.Converged,
		Fallback:  last.Report.Fallback,
		Total:     total,
		Occupied:  occupied,
		Width:     size.X,
		Height:    size.Y,
	})
}

type generationResponse struct {
	Changed    bool   `json:"changed"`
	Generation string `json:"generation"`
	Slots      int    `json:"slots"`
	Fallback   bool   `json:"fallback"`
}

func (s *Server) generation(changed bool) generationResponse {
	last := s.engine.LastResult()
	return generationResponse{
		Changed:    changed,
		Generation: last.Generation.String(),
		Slots:      last.Slots,
		Fallback:   last.Report.Fallback,
	}
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	s.engine.RegenerateContext(r.Context(), true)
	writeJSON(w, http.StatusOK, s.generation(true))
}

// =============================================================================
// Settings and host
// =============================================================================

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Settings())
}

// putSettings decodes the body over the current settings, so a partial
// document changes only the fields it names.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	next := s.engine.Settings()
	if err := readJSON(r, &next); err != nil {
		writeError(w, err)
		return
	}
	changed, err := s.engine.Apply(next)
	if err != nil {
		writeError(w, err)
		return
	}
	if changed {
		s.engine.Tick()
	}
	writeJSON(w, http.StatusOK, s.generation(changed))
}

type hostRequest struct {
	Anchor  *geom.Vec3 `json:"anchor"`
	Heading *float64   `json:"heading"`
	Size    *geom.Vec2 `json:"size"`
}

// putHost moves or turns the host without regenerating. A new size changes
// the boundary and so triggers a pass.
func (s *Server) putHost(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Size != nil {
		if err := errors.ValidateBoundary(req.Size.X, req.Size.Y); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Anchor != nil && !req.Anchor.Finite() {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "anchor must be finite"))
		return
	}
	var heading float64
	if req.Heading != nil {
		h, err := settings.NormalizeHeading(*req.Heading)
		if err != nil {
			writeError(w, err)
			return
		}
		heading = h
	}

	if req.Anchor != nil {
		s.host.Move(*req.Anchor)
	}
	if req.Heading != nil {
		s.host.Orient(settings.Scene{Heading: heading}.Rotation())
	}
	changed := false
	if req.Size != nil {
		s.host.Resize(*req.Size)
		s.engine.RegenerateContext(r.Context(), true)
		changed = true
	}
	writeJSON(w, http.StatusOK, s.generation(changed))
}

type eventsResponse struct {
	Events  []events.Event `json:"events"`
	Dropped int            `json:"dropped"`
}

func (s *Server) drainEvents(w http.ResponseWriter, r *http.Request) {
	evs := s.queue.Drain()
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: evs, Dropped: s.queue.Dropped()})
}

// =============================================================================
// Slots
// =============================================================================

func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	onlyFree := q.Get("available") == "true"
	instance := -1
	if v := q.Get("instance"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "instance must be an integer: %q", v))
			return
		}
		instance = i
	}

	out := []engine.SlotInfo{}
	for _, in := range s.engine.Snapshot().Instances {
		if instance >= 0 && in.Index != instance {
			continue
		}
		for _, sl := range in.Slots {
			if onlyFree && sl.Occupied() {
				continue
			}
			out = append(out, engine.SlotInfo{
				ID:       sl.ID,
				Instance: in.Index,
				Index:    sl.Index,
				Local:    sl.Local,
				World:    sl.World,
				Occupant: formation.Occupant(sl.Occupant),
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeSlot(w, slot)
}

func (s *Server) nearestSlot(w http.ResponseWriter, r *http.Request) {
	var pos geom.Vec3
	q := r.URL.Query()
	for _, c := range []struct {
		name string
		dst  *float64
	}{{"x", &pos.X}, {"y", &pos.Y}, {"z", &pos.Z}} {
		v := q.Get(c.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "%s must be a number: %q", c.name, v))
			return
		}
		*c.dst = f
	}
	slot := s.engine.NearestAvailableSlot(pos)
	if slot == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no free slot"))
		return
	}
	s.writeSlot(w, slot)
}

type occupyRequest struct {
	Occupant uint64     `json:"occupant"`
	Instance *int       `json:"instance"`
	Slot     *int       `json:"slot"`
	Near     *geom.Vec3 `json:"near"`
}

func (s *Server) occupy(w http.ResponseWriter, r *http.Request) {
	var req occupyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o := formation.Occupant(req.Occupant)
	if o == formation.NoOccupant {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "occupant must be non-zero"))
		return
	}

	var slot *formation.Slot
	switch {
	case req.Slot != nil:
		target, ok := s.engine.Slot(*req.Slot)
		if !ok {
			writeError(w, errors.New(errors.ErrCodeNotFound, "slot %d not found", *req.Slot))
			return
		}
		if s.engine.OccupySpecificSlot(target, o) {
			slot = target
		}
	case req.Near != nil:
		if target := s.engine.NearestAvailableSlot(*req.Near); target != nil && s.engine.OccupySpecificSlot(target, o) {
			slot = target
		}
	case req.Instance != nil:
		slot = s.engine.TryOccupySlotInFormation(o, *req.Instance)
	default:
		slot = s.engine.TryOccupySlot(o)
	}

	if slot == nil {
		writeError(w, errors.New(errors.ErrCodeConflict, "no free slot for occupant %d", o))
		return
	}
	s.writeSlot(w, slot)
}

type releaseRequest struct {
	Slot     *int   `json:"slot"`
	Occupant uint64 `json:"occupant"`
}

type releaseResponse struct {
	Released int `json:"released"`
}

func (s *Server) release(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	switch {
	case req.Slot != nil:
		slot, ok := s.engine.Slot(*req.Slot)
		if !ok {
			writeError(w, errors.New(errors.ErrCodeNotFound, "slot %d not found", *req.Slot))
			return
		}
		info, _ := s.engine.Describe(slot)
		s.engine.ReleaseSlot(slot)
		n := 0
		if info.Occupant != formation.NoOccupant {
			n = 1
		}
		writeJSON(w, http.StatusOK, releaseResponse{Released: n})
	case req.Occupant != 0:
		n := s.engine.ReleaseOccupant(formation.Occupant(req.Occupant))
		writeJSON(w, http.StatusOK, releaseResponse{Released: n})
	default:
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "release needs a slot or an occupant"))
	}
}

func (s *Server) lookup(raw string) (*formation.Slot, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "slot id must be an integer: %q", raw)
	}
	slot, ok := s.engine.Slot(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "slot %d not found", id)
	}
	return slot, nil
}

// writeSlot describes slot. A regeneration between lookup and description
// makes the slot stale, which is reported as a conflict.
func (s *Server) writeSlot(w http.ResponseWriter, slot *formation.Slot) {
	info, ok := s.engine.Describe(slot)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeConflict, "layout changed; slot is stale"))
		return
	}
	writeJSON(w, http.StatusOK, info)
}
