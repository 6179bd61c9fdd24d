package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/pkg/buildinfo"
	"github.com/matzehuels/formation/pkg/cache"
	"github.com/matzehuels/formation/pkg/pipeline"
	"github.com/matzehuels/formation/pkg/settings"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "formation"

	// Environment variables locating the remote cache backends.
	envRedisAddr = "FORMATION_REDIS_ADDR"
	envMongoURI  = "FORMATION_MONGO_URI"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// cacheBackend is the --cache flag: file, redis, mongo or none.
	cacheBackend string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:       newLogger(w, level),
		cacheBackend: cache.BackendFile,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Formation lays out slot formations inside a bounded area",
		Long: `Formation generates slot layouts for groups that move together: V-shapes,
squares, triangles, circles and grids, spread across several instances and
shrunk until every slot fits the boundary.

Layouts are described by a TOML settings file. Commands compute snapshots,
render them, check how well they fit, preview them in the terminal or serve a
live engine over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cacheBackend, "cache", c.cacheBackend,
		"cache backend: "+strings.Join(cache.Backends, ", "))

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.initCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the selected cache.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, error) {
	cfg, err := c.cacheConfig()
	if err != nil {
		return nil, err
	}
	ch, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Backend, err)
	}
	c.Logger.Debug("cache opened", "backend", cfg.Backend)
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

// cacheConfig resolves the --cache flag and the backend environment.
// Without a usable home directory the file backend degrades to none.
func (c *CLI) cacheConfig() (cache.Config, error) {
	cfg := cache.Config{
		Backend:   strings.ToLower(strings.TrimSpace(c.cacheBackend)),
		RedisAddr: os.Getenv(envRedisAddr),
		MongoURI:  os.Getenv(envMongoURI),
	}
	switch cfg.Backend {
	case "", cache.BackendFile:
		dir, err := cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory; caching disabled", "error", err)
			cfg.Backend = cache.BackendNone
			return cfg, nil
		}
		cfg.Backend = cache.BackendFile
		cfg.Dir = dir
	case cache.BackendRedis:
		if cfg.RedisAddr == "" {
			return cfg, fmt.Errorf("redis cache needs %s", envRedisAddr)
		}
	case cache.BackendMongo:
		if cfg.MongoURI == "" {
			return cfg, fmt.Errorf("mongo cache needs %s", envMongoURI)
		}
	}
	return cfg, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/formation/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Settings Flags
// =============================================================================

// layoutFlags override values of the settings file. Only flags the user
// actually set are applied, so file values survive unless overridden.
type layoutFlags struct {
	shape     string
	instances int
	position  string
	seed      uint64
	width     float64
	height    float64
	heading   float64
	noFit     bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.shape, "shape", "s", "", "formation shape: vshape, square, triangle, circle, grid")
	fs.IntVarP(&f.instances, "instances", "n", settings.DefaultInstanceCount, "number of formation instances")
	fs.StringVarP(&f.position, "position", "p", "", "placement of a single instance: center, random, north, northeast, ...")
	fs.Uint64Var(&f.seed, "seed", settings.DefaultSeed, "seed for random placement")
	fs.Float64Var(&f.width, "width", 0, "boundary width")
	fs.Float64Var(&f.height, "height", 0, "boundary height")
	fs.Float64Var(&f.heading, "heading", 0, "heading in degrees, counter-clockwise from north")
	fs.BoolVar(&f.noFit, "no-fit", false, "skip the boundary solver")
}

// options loads the settings file named by args (or the defaults) and
// applies the flags the user set.
func (f *layoutFlags) options(cmd *cobra.Command, args []string) (pipeline.Options, error) {
	file := settings.DefaultFile()
	if len(args) > 0 {
		loaded, err := settings.Load(args[0])
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("load settings %s: %w", args[0], err)
		}
		file = loaded
	}

	changed := cmd.Flags().Changed
	if changed("shape") {
		s, err := settings.ParseShape(f.shape)
		if err != nil {
			return pipeline.Options{}, err
		}
		file.Formation.Shape = s
	}
	if changed("instances") {
		file.Formation.Instances = f.instances
	}
	if changed("position") {
		p, err := settings.ParsePolicy(f.position)
		if err != nil {
			return pipeline.Options{}, err
		}
		file.Formation.Position = p
	}
	if changed("seed") {
		file.Formation.Seed = f.seed
	}
	if changed("width") {
		file.Scene.Size.X = f.width
	}
	if changed("height") {
		file.Scene.Size.Y = f.height
	}
	if changed("heading") {
		file.Scene.Heading = f.heading
	}
	if f.noFit {
		file.Solver.ConstrainToBoundary = false
	}

	if err := file.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.FromFile(file), nil
}

// =============================================================================
// Output Paths
// =============================================================================

// basePath derives the base output path. An explicit output wins, with a
// known format extension stripped; otherwise the input's extension is
// stripped; with no input the app name is used.
func basePath(output, input string) string {
	if output != "" {
		ext := filepath.Ext(output)
		if pipeline.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
			return strings.TrimSuffix(output, ext)
		}
		return output
	}
	if input == "" {
		return appName
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// outputPath names the file one artifact is written to. Snapshots get a
// .layout.json suffix so they do not collide with settings files.
func outputPath(base, format string) string {
	if format == pipeline.FormatJSON {
		return base + ".layout.json"
	}
	return base + "." + format
}

// writeArtifacts writes every artifact next to base in formats order and
// returns the paths written.
func writeArtifacts(base string, formats []string, artifacts map[string][]byte) ([]string, error) {
	var paths []string
	for _, format := range formats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := outputPath(base, format)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
