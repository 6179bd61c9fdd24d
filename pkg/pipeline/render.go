package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/formation/pkg/cache"
	"github.com/matzehuels/formation/pkg/observability"
	"github.com/matzehuels/formation/pkg/render"
	"github.com/matzehuels/formation/pkg/snapshot"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, snap *snapshot.Snapshot, opts Options) (artifacts map[string][]byte, err error) {
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	defer func() {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	}()

	artifacts = make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		if format == FormatJSON {
			data, err = marshalSnapshot(snap)
		} else {
			data, err = render.Render(ctx, snap, format, opts.RenderOptions())
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// LayoutHash identifies the content of a snapshot. Two snapshots of the same
// layout hash equally even if they came from different passes.
func LayoutHash(snap *snapshot.Snapshot) string {
	c := *snap
	c.Generation = ""
	return cache.HashJSON(&c)
}

func marshalSnapshot(snap *snapshot.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := snapshot.WriteJSON(snap, &buf); err != nil {
		return nil, fmt.Errorf("serialize snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
