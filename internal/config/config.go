// Package config loads experiment configs: named model sections, each
// holding one CDR formula. Configs may be written in CUE, YAML or HCL and
// are discovered from files, directories or doublestar globs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	ErrNoConfigs      = errors.New("no config files found")
	ErrUnknownFormat  = errors.New("unknown config format")
	ErrInvalidConfig  = errors.New("invalid config")
	ErrDuplicateModel = errors.New("duplicate model name")
)

// Format is a config file syntax.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// configGlob matches every config file below a directory.
const configGlob = "**/*.{cue,yaml,yml,hcl}"

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".hcl":
		return FormatHCL, true
	}
	return "", false
}

// Model is one named model section.
type Model struct {
	Name        string
	Formula     string
	Description string
	Source      string // config file path
	Line        int    // 1-based line of the section, 0 when unknown
}

// Pos renders the model's location for diagnostics.
func (m Model) Pos() string {
	if m.Line > 0 {
		return fmt.Sprintf("%s:%d", m.Source, m.Line)
	}
	return m.Source
}

// File is one parsed config file. Models keep the order they are written in.
type File struct {
	Path   string
	Format Format
	Models []Model
}

// LoadFile parses one config file.
func LoadFile(path string) (*File, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w (expected .cue, .yaml, .yml or .hcl)", path, ErrUnknownFormat)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var models []Model
	switch format {
	case FormatCUE:
		models, err = parseCUE(path, data)
	case FormatYAML:
		models, err = parseYAML(path, data)
	case FormatHCL:
		models, err = parseHCL(path, data)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if m.Name == "" {
			return nil, fmt.Errorf("%s: %w: model with empty name", m.Pos(), ErrInvalidConfig)
		}
		if strings.TrimSpace(m.Formula) == "" {
			return nil, fmt.Errorf("%s: %w: model %s has no formula", m.Pos(), ErrInvalidConfig, m.Name)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("%s: %w: %s", m.Pos(), ErrDuplicateModel, m.Name)
		}
		seen[m.Name] = true
	}
	return &File{Path: path, Format: format, Models: models}, nil
}

// Discover resolves config arguments to file paths. An argument may be a
// file, a directory (searched recursively for known extensions) or a
// doublestar glob. Paths are returned once each, in argument order, with
// the matches of a single argument sorted.
func Discover(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		matches, err := expand(arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: %w", arg, ErrNoConfigs)
		}
		for _, m := range matches {
			add(m)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoConfigs
	}
	return out, nil
}

func expand(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	switch {
	case err == nil && info.IsDir():
		return glob(filepath.Join(arg, configGlob))
	case err == nil:
		return []string{arg}, nil
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("stat %s: %w", arg, err)
	}
	if !strings.ContainsAny(arg, "*?[{") {
		return nil, fmt.Errorf("%s: %w", arg, os.ErrNotExist)
	}
	return glob(arg)
}

// glob returns the regular files matching pattern that have a known format.
func glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	var files []string
	for _, m := range matches {
		if _, ok := FormatOf(m); ok {
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}

// Load discovers and parses every config named by args. Model names must be
// unique across all files.
func Load(args []string) ([]*File, error) {
	paths, err := Discover(args)
	if err != nil {
		return nil, err
	}
	files := make([]*File, 0, len(paths))
	owner := make(map[string]Model)
	for _, p := range paths {
		f, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		for _, m := range f.Models {
			if prev, ok := owner[m.Name]; ok {
				return nil, fmt.Errorf("%s: %w: %s is also defined at %s", m.Pos(), ErrDuplicateModel, m.Name, prev.Pos())
			}
			owner[m.Name] = m
		}
		files = append(files, f)
	}
	return files, nil
}

// Models flattens files into one list, in file then section order.
func Models(files []*File) []Model {
	var out []Model
	for _, f := range files {
		out = append(out, f.Models...)
	}
	return out
}
