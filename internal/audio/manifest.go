package audio

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed sounds.yaml
var defaultFiles embed.FS

// Manifest maps a sound category to the asset urls that belong to it.
type Manifest struct {
	sounds map[string][]string
}

type manifestFile struct {
	Sounds map[string][]string `yaml:"sounds"`
}

// LoadManifest reads the embedded defaults and then applies *.yaml files from overrideDir.
// An override replaces a whole category.
func LoadManifest(overrideDir string) (*Manifest, error) {
	m := &Manifest{sounds: make(map[string][]string)}
	raw, err := fs.ReadFile(defaultFiles, "sounds.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded sounds: %w", err)
	}
	if err := m.apply(raw); err != nil {
		return nil, fmt.Errorf("parse embedded sounds: %w", err)
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := m.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ParseManifest builds a manifest from a single YAML document.
func ParseManifest(raw []byte) (*Manifest, error) {
	m := &Manifest{sounds: make(map[string][]string)}
	if err := m.apply(raw); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read sound dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := m.apply(b); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

func (m *Manifest) apply(raw []byte) error {
	var f manifestFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	for category, urls := range f.Sounds {
		category = strings.TrimSpace(category)
		if category == "" {
			return errors.New("sound category without a name")
		}
		clean := make([]string, 0, len(urls))
		for _, u := range urls {
			if u = strings.TrimSpace(u); u != "" {
				clean = append(clean, u)
			}
		}
		m.sounds[category] = clean
	}
	return nil
}

// Categories returns category names in sorted order.
func (m *Manifest) Categories() []string {
	out := make([]string, 0, len(m.sounds))
	for c := range m.sounds {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Assets returns a copy of the urls registered for category.
func (m *Manifest) Assets(category string) []string {
	return append([]string(nil), m.sounds[category]...)
}
