// Package pipeline runs the offline generate → render pipeline for formation
// layouts.
//
// The CLI and the HTTP inspector both go through a [Runner] so that caching,
// defaults and validation behave the same everywhere. A run drives an
// [engine.Engine] against a static scene, captures the result as a
// [snapshot.Snapshot] and optionally renders it.
//
// # Stages
//
//  1. Layout: generate, position and constrain the formation (cached by
//     settings, tuning and scene)
//  2. Render: draw the snapshot as JSON, DOT, SVG, PNG or PDF (cached by
//     layout and render options)
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Settings: settings.Defaults(),
//	    Scene:    settings.DefaultScene(),
//	    Formats:  []string{"json", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	snap, err := runner.GenerateLayout(ctx, opts)
//	artifacts, err := runner.Render(ctx, snap, opts)
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/render"
	"github.com/matzehuels/formation/pkg/settings"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// =============================================================================
// Formats
// =============================================================================

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = render.FormatDOT
	FormatSVG  = render.FormatSVG
	FormatPNG  = render.FormatPNG
	FormatPDF  = render.FormatPDF
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
}

// DefaultFormat is rendered when no format is requested.
const DefaultFormat = FormatJSON

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options. Zero values are replaced with defaults.
	Settings settings.Settings `json:"settings"`
	Tuning   settings.Tuning   `json:"tuning"`
	Scene    settings.Scene    `json:"scene"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Scale   float64  `json:"scale,omitempty"`
	Labels  bool     `json:"labels,omitempty"`

	// Refresh bypasses cached results and overwrites them.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// FromFile builds options from a loaded settings file.
func FromFile(f settings.File) Options {
	return Options{Settings: f.Formation, Tuning: f.Solver, Scene: f.Scene}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the generated layout.
	Snapshot *snapshot.Snapshot

	// LayoutHash identifies the layout content, independent of its
	// generation ID.
	LayoutHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	InstanceCount int
	SlotCount     int
	Iterations    int
	Fallback      bool
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the snapshot came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, dot, svg, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, trimming blanks and
// dropping duplicates.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every option and applies defaults for the
// full pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLayoutDefaults fills zero-valued layout options.
func (o *Options) SetLayoutDefaults() {
	if o.Settings == (settings.Settings{}) {
		o.Settings = settings.Defaults()
	}
	if o.Tuning == (settings.Tuning{}) {
		o.Tuning = settings.DefaultTuning()
	}
	if o.Scene == (settings.Scene{}) {
		o.Scene = settings.DefaultScene()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout sets layout defaults and validates the settings file
// sections.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return settings.File{Formation: o.Settings, Solver: o.Tuning, Scene: o.Scene}.Validate()
}

// SetRenderDefaults fills zero-valued render options.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Scale <= 0 {
		o.Scale = render.DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender sets render defaults and validates the formats.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// RenderOptions returns the options passed to the renderer.
func (o Options) RenderOptions() render.Options {
	return render.Options{Scale: o.Scale, Labels: o.Labels}
}
