package checklist

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadFile parses a single YAML or JSON checklist file.
// The format is detected by file extension.
func LoadFile(path string) (*Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checklist %s: %w", path, err)
	}
	c, err := parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("checklist %s: %w", path, err)
	}
	return c, nil
}

// LoadDir loads all .yaml, .yml and .json checklists from a directory,
// in file name order.
func LoadDir(dir string) ([]*Checklist, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading checklist directory %s: %w", dir, err)
	}

	var lists []*Checklist
	for _, entry := range entries {
		if entry.IsDir() || !isChecklistFile(entry.Name()) {
			continue
		}
		c, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		lists = append(lists, c)
	}

	if len(lists) == 0 {
		return nil, fmt.Errorf("no checklist files found in %s", dir)
	}
	return lists, nil
}

// Builtin returns the embedded checklist with the given name.
func Builtin(name string) (*Checklist, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown built-in checklist %q (have: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	c, err := parse(data, ".yaml")
	if err != nil {
		return nil, fmt.Errorf("built-in checklist %s: %w", name, err)
	}
	return c, nil
}

// BuiltinNames lists the embedded checklists in sorted order.
func BuiltinNames() []string {
	entries, _ := fs.ReadDir(builtinFS, "builtin")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve turns a command-line argument into checklists: an existing file
// or directory is loaded from disk, anything else names a built-in.
func Resolve(arg string) ([]*Checklist, error) {
	info, err := os.Stat(arg)
	if err != nil {
		if os.IsNotExist(err) && !strings.ContainsAny(arg, `/\`) && !isChecklistFile(arg) {
			c, err := Builtin(arg)
			if err != nil {
				return nil, err
			}
			return []*Checklist{c}, nil
		}
		return nil, fmt.Errorf("checklist path %s: %w", arg, err)
	}
	if info.IsDir() {
		return LoadDir(arg)
	}
	c, err := LoadFile(arg)
	if err != nil {
		return nil, err
	}
	return []*Checklist{c}, nil
}

func parse(data []byte, ext string) (*Checklist, error) {
	var c Checklist
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported checklist format %q (expected .json, .yaml, or .yml)", ext)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func isChecklistFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
