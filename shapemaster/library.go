package shapemaster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoFiles is returned when stepping through an empty library.
var ErrNoFiles = errors.New("shapemaster: no files in library")

// Library lists the JSON files of a set of directories in sorted order.
type Library struct {
	Dirs []string
}

// List returns every .json file of the library, sorted by path. Missing
// directories are skipped.
func (l Library) List() ([]string, error) {
	var out []string
	for _, dir := range l.Dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				continue
			}
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Step returns the file dir places after (dir > 0) or before (dir < 0) cur,
// wrapping at both ends. A cur that is not in the library steps from where it
// would sort.
func (l Library) Step(cur string, dir int) (string, error) {
	list, err := l.List()
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", ErrNoFiles
	}
	return step(list, cur, dir), nil
}

func step(list []string, cur string, dir int) string {
	n := len(list)
	i := sort.SearchStrings(list, cur)
	if dir > 0 {
		if i < n && list[i] == cur {
			i++
		}
		return list[i%n]
	}
	return list[(i-1+n)%n]
}

// LoadPreset reads and validates a preset file. Nothing is returned on error.
func LoadPreset(path string) (Preset, error) {
	var p Preset
	if err := readJSON(path, &p); err != nil {
		return Preset{}, err
	}
	if err := p.Validate(); err != nil {
		return Preset{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadShape reads and validates a shape file.
func LoadShape(path string) (Shape, error) {
	var s Shape
	if err := readJSON(path, &s); err != nil {
		return Shape{}, err
	}
	if err := s.Validate(); err != nil {
		return Shape{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// SavePreset writes p to path, creating the directory if needed.
func SavePreset(path string, p Preset) error { return writeJSON(path, p) }

// SaveShape writes s to path, creating the directory if needed.
func SaveShape(path string, s Shape) error { return writeJSON(path, s) }

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
