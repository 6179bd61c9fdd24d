// Package pkg provides the core libraries of the formation layout engine.
//
// # Overview
//
// A formation is a set of slots that a group of occupants (units, followers,
// drones) moves to while travelling together. The engine generates slots in a
// named shape, spreads several instances of that shape across a rectangular
// boundary, shrinks spacing until every slot fits, and hands slots out to
// occupants. The pkg directory is organized into four areas:
//
//  1. Geometry and shapes: [geom], [shape]
//  2. Layout: [formation], [layout], [engine], [events]
//  3. Serialization and output: [settings], [snapshot], [render]
//  4. Orchestration: [pipeline], [cache], [observability], [errors]
//
// # Architecture
//
// One regeneration pass:
//
//	settings.Settings
//	       ↓
//	  [shape] generate local slot points per instance
//	       ↓
//	  [layout] place one instance or spread many
//	       ↓
//	  [layout] shrink spacing until the boundary holds (or fall back)
//	       ↓
//	  [formation] registry of slots, anchored to the host frame
//	       ↓
//	  [events] LayoutChanged / FallbackApplied
//
// The [engine] package owns that pass and the registry. A live host calls
// Engine.Tick once per simulation step; offline tools use [pipeline], which
// drives an engine against a static scene and caches the resulting
// [snapshot].
//
// # Quick Start
//
//	e, _ := engine.New(engine.NewStaticHost(geom.V3(0, 0, 0), geom.V2(60, 40), geom.Rotation{}),
//	    engine.WithSettings(settings.Defaults()))
//	e.Regenerate(true)
//
//	slot := e.TryOccupySlot(7)
//	pos := e.SlotWorldPosition(slot)
//
// Offline, with caching:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, _ := runner.Execute(ctx, pipeline.Options{Formats: []string{"json", "svg"}})
//	os.WriteFile("formation.svg", res.Artifacts["svg"], 0o644)
//
// # Testing
//
//	go test ./...                 # All tests
//	go test -short ./...          # Skip Graphviz rendering
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/geom
// [shape]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/shape
// [formation]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/formation
// [layout]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/layout
// [engine]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/engine
// [events]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/events
// [settings]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/settings
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/snapshot
// [render]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/formation/pkg/errors
package pkg
