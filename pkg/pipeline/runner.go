package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/formation/pkg/cache"
	"github.com/matzehuels/formation/pkg/observability"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Layout
	layoutStart := time.Now()
	snap, layoutHit, err := r.GenerateLayoutWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Snapshot = snap
	result.LayoutHash = LayoutHash(snap)
	result.CacheInfo.LayoutHit = layoutHit
	result.Stats = Stats{
		InstanceCount: len(snap.Instances),
		SlotCount:     snap.SlotCount(),
		Iterations:    snap.Solver.Iterations,
		Fallback:      snap.Solver.Fallback,
		LayoutTime:    time.Since(layoutStart),
	}

	r.Logger.Info("computed layout",
		"shape", snap.Settings.Shape,
		"instances", result.Stats.InstanceCount,
		"slots", result.Stats.SlotCount,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)
	if snap.Solver.Fallback {
		r.Logger.Warn("layout could not fit the boundary; fallback applied")
	}

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, snap, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutKey returns the cache key of the layout opts describe. Options must
// have defaults applied.
func (r *Runner) LayoutKey(opts Options) string {
	settingsHash := cache.HashJSON(struct {
		Settings any `json:"settings"`
		Tuning   any `json:"tuning"`
	}{opts.Settings, opts.Tuning})
	sc := opts.Scene
	return r.Keyer.LayoutKey(settingsHash, cache.LayoutKeyOpts{
		Anchor:  [3]float64{sc.Anchor.X, sc.Anchor.Y, sc.Anchor.Z},
		Width:   sc.Size.X,
		Height:  sc.Size.Y,
		Heading: sc.Heading,
	})
}

// GenerateLayoutWithCacheInfo generates a layout with caching and returns
// cache hit info.
func (r *Runner) GenerateLayoutWithCacheInfo(ctx context.Context, opts Options) (*snapshot.Snapshot, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	cacheKey := r.LayoutKey(opts)

	if !opts.Refresh {
		if data, hit := r.get(ctx, "layout", cacheKey); hit {
			snap, err := snapshot.ReadJSON(bytes.NewReader(data))
			if err == nil {
				return snap, true, nil
			}
			r.Logger.Debug("discarding unreadable cached layout", "key", cacheKey, "error", err)
		}
	}

	snap, err := GenerateLayout(ctx, opts)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := snapshot.WriteJSON(snap, &buf); err == nil {
		r.set(ctx, "layout", cacheKey, buf.Bytes(), cache.TTLLayout)
	}

	return snap, false, nil
}

// GenerateLayout is a convenience wrapper that calls
// GenerateLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) GenerateLayout(ctx context.Context, opts Options) (*snapshot.Snapshot, error) {
	snap, _, err := r.GenerateLayoutWithCacheInfo(ctx, opts)
	return snap, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache
// hit info. JSON output is the snapshot itself and is never cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, snap *snapshot.Snapshot, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutHash := LayoutHash(snap)
	key := func(format string) string {
		return r.Keyer.ArtifactKey(layoutHash, cache.ArtifactKeyOpts{
			Format: format,
			Scale:  opts.Scale,
			Labels: opts.Labels,
		})
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := !opts.Refresh
	for _, format := range opts.Formats {
		if !allCached {
			break
		}
		if format == FormatJSON {
			continue
		}
		if data, hit := r.get(ctx, "artifact", key(format)); hit {
			artifacts[format] = data
		} else {
			allCached = false
		}
	}

	if allCached && len(artifacts) > 0 {
		if slices.Contains(opts.Formats, FormatJSON) {
			data, err := marshalSnapshot(snap)
			if err != nil {
				return nil, false, err
			}
			artifacts[FormatJSON] = data
		}
		return artifacts, true, nil
	}

	rendered, err := Render(ctx, snap, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		if format != FormatJSON {
			r.set(ctx, "artifact", key(format), data, cache.TTLArtifact)
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, snap *snapshot.Snapshot, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, snap, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// get reads a cache entry, retrying transient backend failures. Errors that
// persist are logged and treated as misses.
func (r *Runner) get(ctx context.Context, keyType, key string) ([]byte, bool) {
	var (
		data []byte
		hit  bool
	)
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, hit, err = r.Cache.Get(ctx, key)
		return err
	})
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "error", err)
		return nil, false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType)
	}
	return data, hit
}

// set writes a cache entry. Failures only cost a future recomputation, so
// they are logged and dropped.
func (r *Runner) set(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	err := cache.RetryWithBackoff(ctx, func() error {
		return r.Cache.Set(ctx, key, data, ttl)
	})
	if err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
