package pipeline

import (
	"context"

	"github.com/matzehuels/formation/pkg/engine"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout runs one regeneration pass against a static host built
// from opts.Scene and captures the result. No events are published.
//
// Options should have defaults applied; GenerateLayout validates through
// engine.New either way.
func GenerateLayout(ctx context.Context, opts Options) (*snapshot.Snapshot, error) {
	e, err := NewEngine(opts, nil)
	if err != nil {
		return nil, err
	}
	e.RegenerateContext(ctx, false)
	return e.Snapshot(), nil
}

// NewEngine builds an engine for opts without running a pass. A nil host
// uses a static host for opts.Scene. Long-lived consumers such as the
// inspector server and the terminal preview use it to share the pipeline's
// defaults.
func NewEngine(opts Options, host engine.Host) (*engine.Engine, error) {
	opts.SetLayoutDefaults()
	if host == nil {
		host = engine.SceneHost(opts.Scene)
	}
	return engine.New(host,
		engine.WithSettings(opts.Settings),
		engine.WithTuning(opts.Tuning),
		engine.WithLogger(opts.Logger),
	)
}
