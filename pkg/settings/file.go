package settings

import (
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/geom"
)

// Scene describes a static level/path context: where the formation is
// anchored, how large its boundary is and which way it faces. It stands in
// for a live host in offline tools.
type Scene struct {
	Anchor geom.Vec3 `toml:"anchor" json:"anchor" bson:"anchor"`
	Size   geom.Vec2 `toml:"size" json:"size" bson:"size"`

	// Heading is the travel direction in degrees, counter-clockwise from
	// +Y (north).
	Heading float64 `toml:"heading" json:"heading" bson:"heading"`
}

// Rotation returns the scene heading as a yaw rotation.
func (sc Scene) Rotation() geom.Rotation { return geom.Yaw(sc.Heading * math.Pi / 180) }

// NormalizeHeading folds a heading in degrees into [0, 360). Non-finite
// headings are rejected.
func NormalizeHeading(deg float64) (float64, error) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, errors.New(errors.ErrCodeInvalidSettings, "heading must be finite")
	}
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	if h == 0 || h >= 360 {
		return 0, nil
	}
	return h, nil
}

// DefaultScene returns a 60x40 boundary at the origin facing north.
func DefaultScene() Scene {
	return Scene{Size: geom.V2(60, 40)}
}

// File is the on-disk TOML document:
//
//	[formation]
//	shape = "square"
//	square_size = 4
//	instances = 3
//
//	[solver]
//	min_spacing_multiplier = 0.25
//
//	[scene]
//	size = { x = 60.0, y = 40.0 }
type File struct {
	Formation Settings `toml:"formation"`
	Solver    Tuning   `toml:"solver"`
	Scene     Scene    `toml:"scene"`
}

// DefaultFile returns a document populated with all defaults.
func DefaultFile() File {
	return File{
		Formation: Defaults(),
		Solver:    DefaultTuning(),
		Scene:     DefaultScene(),
	}
}

// Validate checks every section of the file.
func (f File) Validate() error {
	_, headingErr := NormalizeHeading(f.Scene.Heading)
	return errors.Join(
		f.Formation.Validate(),
		f.Solver.Validate(),
		errors.ValidateBoundary(f.Scene.Size.X, f.Scene.Size.Y),
		headingErr,
	)
}

// Load reads a TOML settings file. Keys missing from the file keep their
// defaults; unknown keys are rejected so typos do not pass silently.
func Load(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "settings file %s", path)
		}
		return File{}, err
	}
	defer fh.Close()
	return Decode(fh)
}

// Decode reads a TOML settings document from r.
func Decode(r io.Reader) (File, error) {
	f := DefaultFile()
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return File{}, errors.Wrap(errors.ErrCodeInvalidSettings, err, "decode settings")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return File{}, errors.New(errors.ErrCodeInvalidSettings, "unknown settings keys: %s", strings.Join(keys, ", "))
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Encode writes f as TOML.
func Encode(w io.Writer, f File) error {
	return toml.NewEncoder(w).Encode(f)
}
