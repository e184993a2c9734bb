package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// defaultFixtures are served when no fixture directory is given.
//
//go:embed fixtures/*
var defaultFixtures embed.FS

// fixtureFileRe matches "model.json", "model.txt" and the numbered forms
// "model.1.json", "model.2.txt".
var fixtureFileRe = regexp.MustCompile(`^(.+?)(?:\.(\d+))?\.(json|txt)$`)

// loadFixtures reads fixture files from fsys and returns a map of
// model→content sequence.
//
// For each model, fixtures are ordered:
//  1. Numbered files (model.1.json, model.2.txt, ...) in numeric order
//  2. Base file (model.json or model.txt) appended as the final fallback
//
// .json files must hold valid JSON. .txt files are returned verbatim, which
// lets a fixture wrap JSON in prose or code fences.
func loadFixtures(fsys fs.FS) (map[string][]string, error) {
	baseFiles := make(map[string]string)
	numberedFiles := make(map[string]map[int]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := fixtureFileRe.FindStringSubmatch(path.Base(p))
		if m == nil {
			return nil
		}
		model, index, ext := m[1], m[2], m[3]

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if ext == "json" && !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", p)
		}
		content := strings.TrimRight(string(data), "\n")

		if index == "" {
			if _, dup := baseFiles[model]; dup {
				return fmt.Errorf("duplicate base fixture for model %q", model)
			}
			baseFiles[model] = content
			return nil
		}
		n, _ := strconv.Atoi(index)
		if numberedFiles[model] == nil {
			numberedFiles[model] = make(map[int]string)
		}
		numberedFiles[model][n] = content
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	for model, numbered := range numberedFiles {
		indices := make([]int, 0, len(numbered))
		for idx := range numbered {
			indices = append(indices, idx)
		}
		slices.Sort(indices)
		for _, idx := range indices {
			fixtures[model] = append(fixtures[model], numbered[idx])
		}
	}
	for model, base := range baseFiles {
		fixtures[model] = append(fixtures[model], base)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found")
	}
	return fixtures, nil
}

// embeddedFixtures returns the built-in fixture set.
func embeddedFixtures() (map[string][]string, error) {
	sub, err := fs.Sub(defaultFixtures, "fixtures")
	if err != nil {
		return nil, err
	}
	return loadFixtures(sub)
}
