package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds screens by name.
type Catalog struct {
	screens map[string]Screen
	order   []string
}

type documentFile struct {
	Screens []Screen `json:"screens" yaml:"screens"`
}

// Parse decodes a JSON or YAML screens document. source names the input in
// error messages.
func Parse(data []byte, source string) (*Catalog, error) {
	cat := &Catalog{screens: make(map[string]Screen)}
	if err := cat.add(data, source); err != nil {
		return nil, err
	}
	return cat, nil
}

// LoadFile reads one screens file.
func LoadFile(path string) (*Catalog, error) {
	return Load(context.Background(), SourceFromFile(path), nil)
}

// LoadFS walks fsys and merges every .yaml, .yml and .json file. Screen
// names must be unique across files.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	cat := &Catalog{screens: make(map[string]Screen)}
	if fsys == nil {
		return cat, nil
	}
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		return cat.add(data, path)
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) add(data []byte, source string) error {
	doc, err := parseDocument(data, source)
	if err != nil {
		return err
	}
	for _, screen := range doc.Screens {
		name := strings.TrimSpace(screen.Name)
		if name == "" {
			return fmt.Errorf("schema: file %s defines a screen without a name", source)
		}
		if strings.TrimSpace(screen.Kind) == "" {
			screen.Kind = name
		}
		if _, exists := c.screens[name]; exists {
			return fmt.Errorf("schema: duplicate screen %q (file %s)", name, source)
		}
		screen.Name = name
		if screen.List != nil {
			if _, err := screen.ListSchema(); err != nil {
				return err
			}
		}
		if screen.Form != nil {
			if _, err := screen.FormSchema(); err != nil {
				return err
			}
		}
		c.screens[name] = screen
		c.order = append(c.order, name)
	}
	return nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("schema: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("schema: parse %s: %w", source, err)
	}
	return doc, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// Screen returns the named screen.
func (c *Catalog) Screen(name string) (Screen, bool) {
	if c == nil {
		return Screen{}, false
	}
	s, ok := c.screens[name]
	return s, ok
}

// Names lists screens in load order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// Kinds lists every record kind referenced by the catalog, sorted.
func (c *Catalog) Kinds() []string {
	if c == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, s := range c.screens {
		set[s.Kind] = struct{}{}
		for _, k := range s.OptionKinds() {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
