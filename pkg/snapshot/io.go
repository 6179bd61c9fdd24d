package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/formation/pkg/errors"
)

// WriteJSON encodes s as indented JSON and writes it to w.
func WriteJSON(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a snapshot from r.
//
// ReadJSON returns an error if the JSON is malformed, if slot IDs are not
// unique, or if a slot's recorded position within its instance does not
// match its index. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode snapshot")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the structural invariants of a decoded snapshot.
func (s *Snapshot) Validate() error {
	seen := make(map[int]bool, s.SlotCount())
	for i, in := range s.Instances {
		if in.Index != i {
			return errors.New(errors.ErrCodeInvalidFormat, "instance %d recorded as index %d", i, in.Index)
		}
		for j, sl := range in.Slots {
			if sl.Index != j {
				return errors.New(errors.ErrCodeInvalidFormat, "instance %d slot %d recorded as index %d", i, j, sl.Index)
			}
			if seen[sl.ID] {
				return errors.New(errors.ErrCodeInvalidFormat, "duplicate slot id %d", sl.ID)
			}
			seen[sl.ID] = true
		}
	}
	return nil
}

// Export writes s to a JSON file at path.
func Export(s *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(s, f)
}

// Import reads a JSON snapshot file at path.
func Import(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "snapshot %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
