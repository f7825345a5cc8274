package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Layers returns the files Read merges for `name`, lowest priority first:
// the file itself, then <prefix>.local.<ext> next to it.
func Layers(name string) []string {
	ext := filepath.Ext(name)
	prefix := strings.TrimSuffix(name, ext)
	return []string{name, prefix + ".local" + ext}
}

// decode reports false for a missing or empty file.
func decode(path string, out any) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// Read decodes every layer of `name` that exists, later layers override the
// fields they set. It returns os.ErrNotExist when no layer exists.
func Read[T any](name string) (T, error) {
	var out T
	found := false
	for _, path := range Layers(name) {
		var layer T
		ok, err := decode(path, &layer)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if found {
			slog.Info("merging config with local overrides", "local", path)
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		found = true
	}
	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Find looks for a layer of the relative `name` in `dir` and then in each of
// its parents, it returns the path Read should be given.
func Find(dir, name string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		for _, path := range Layers(candidate) {
			_, err := os.Stat(path)
			if err == nil {
				return candidate, nil
			}
			if !os.IsNotExist(err) {
				return "", err
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
