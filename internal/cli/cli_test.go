package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/settings"
	"github.com/matzehuels/formation/pkg/snapshot"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// parseLayoutFlags registers layoutFlags on a bare command and parses args.
func parseLayoutFlags(t *testing.T, args ...string) (*layoutFlags, *cobra.Command) {
	t.Helper()
	var f layoutFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v): %v", args, err)
	}
	return &f, cmd
}

// run executes the root command with a quiet logger and no cache.
func run(t *testing.T, args ...string) error {
	t.Helper()
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--cache", "none"}, args...))
	return root.Execute()
}

func TestLayoutFlagsDefaults(t *testing.T) {
	f, cmd := parseLayoutFlags(t)
	opts, err := f.options(cmd, nil)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Settings != settings.Defaults() {
		t.Error("no file and no flags should give default settings")
	}
	if opts.Scene != settings.DefaultScene() {
		t.Error("no file and no flags should give the default scene")
	}
}

func TestLayoutFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "f.toml", "[formation]\nshape = \"square\"\ninstances = 2\nposition = \"north\"\n")

	f, cmd := parseLayoutFlags(t, "--instances", "3", "--width", "80", "--heading", "90", "--no-fit")
	opts, err := f.options(cmd, []string{path})
	if err != nil {
		t.Fatalf("options: %v", err)
	}

	if opts.Settings.Shape != settings.Square {
		t.Errorf("Shape = %v, want square from file", opts.Settings.Shape)
	}
	if opts.Settings.Position != settings.North {
		t.Errorf("Position = %v, want north from file", opts.Settings.Position)
	}
	if opts.Settings.Instances != 3 {
		t.Errorf("Instances = %d, want 3 from flag", opts.Settings.Instances)
	}
	if opts.Scene.Size.X != 80 || opts.Scene.Size.Y != settings.DefaultScene().Size.Y {
		t.Errorf("Scene.Size = %+v, want width overridden only", opts.Scene.Size)
	}
	if opts.Scene.Heading != 90 {
		t.Errorf("Heading = %v, want 90", opts.Scene.Heading)
	}
	if opts.Tuning.ConstrainToBoundary {
		t.Error("--no-fit should disable the boundary solver")
	}
}

func TestLayoutFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		file string
		want errors.Code
	}{
		{"bad shape", []string{"--shape", "hexagon"}, "", errors.ErrCodeInvalidShape},
		{"bad position", []string{"--position", "up"}, "", errors.ErrCodeInvalidPolicy},
		{"negative width", []string{"--width", "-4"}, "", errors.ErrCodeInvalidBoundary},
		{"missing file", nil, filepath.Join(t.TempDir(), "nope.toml"), errors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cmd := parseLayoutFlags(t, tt.args...)
			var args []string
			if tt.file != "" {
				args = []string{tt.file}
			}
			_, err := f.options(cmd, args)
			if !errors.Is(err, tt.want) {
				t.Errorf("options() error = %v, want code %s", err, tt.want)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "", "formation"},
		{"", "cfg/wedge.toml", "cfg/wedge"},
		{"out/x", "wedge.toml", "out/x"},
		{"out/x.svg", "wedge.toml", "out/x"},
		{"out/x.v2", "wedge.toml", "out/x.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath("a/b", "json"); got != "a/b.layout.json" {
		t.Errorf("json path = %q", got)
	}
	if got := outputPath("a/b", "svg"); got != "a/b.svg" {
		t.Errorf("svg path = %q", got)
	}
}

func TestLayoutAndRenderCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, "wedge.toml", "[formation]\nshape = \"triangle\"\ninstances = 2\n")
	base := filepath.Join(dir, "wedge")

	if err := run(t, "layout", cfg, "-f", "json,dot", "-o", base); err != nil {
		t.Fatalf("layout: %v", err)
	}

	snap, err := snapshot.Import(base + ".layout.json")
	if err != nil {
		t.Fatalf("import snapshot: %v", err)
	}
	if got, want := snap.SlotCount(), 2*6; got != want {
		t.Errorf("SlotCount = %d, want %d", got, want)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.HasPrefix(string(dot), "graph formation {") {
		t.Errorf("dot output starts with %.30q", dot)
	}

	out := filepath.Join(dir, "rendered")
	if err := run(t, "render", base+".layout.json", "-f", "dot", "--labels", "-o", out); err != nil {
		t.Fatalf("render: %v", err)
	}
	labelled, err := os.ReadFile(out + ".dot")
	if err != nil {
		t.Fatalf("read rendered dot: %v", err)
	}
	if !strings.Contains(string(labelled), `label="0"`) {
		t.Error("--labels should label slots")
	}
}

func TestRenderRejectsFormat(t *testing.T) {
	err := run(t, "render", "missing.layout.json", "-f", "gif")
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("render -f gif error = %v, want INVALID_FORMAT", err)
	}
}

func TestCheckCommand(t *testing.T) {
	if err := run(t, "check", "--strict"); err != nil {
		t.Errorf("default layout should pass --strict: %v", err)
	}
	if err := run(t, "check", "--strict", "--width", "0.5", "--height", "0.5"); err == nil {
		t.Error("a boundary smaller than the minimum spacing should fail --strict")
	}
	if err := run(t, "check", "--width", "0.5", "--height", "0.5"); err != nil {
		t.Errorf("without --strict a poor fit is only reported: %v", err)
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := run(t, "init", path, "--shape", "circle"); err != nil {
		t.Fatalf("init: %v", err)
	}
	f, err := settings.Load(path)
	if err != nil {
		t.Fatalf("load written settings: %v", err)
	}
	if f.Formation.Shape != settings.Circle {
		t.Errorf("Shape = %v, want circle", f.Formation.Shape)
	}
	if f.Solver != settings.DefaultTuning() {
		t.Error("solver section should hold the defaults")
	}

	if err := run(t, "init", path); err == nil {
		t.Error("init should refuse to overwrite without --force")
	}
	if err := run(t, "init", path, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	for _, name := range []string{"layout", "render", "check", "preview", "serve", "init", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
