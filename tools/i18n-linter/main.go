// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the message catalogs against the source tree. It
// reports message IDs used in code but absent from the primary locale,
// IDs missing from secondary locales, and orphaned IDs nothing refers to.
//
// Usage:
//
//	go run ./tools/i18n-linter [project-root]
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "active.en.yaml"
)

// dynamicPrefixes are message ID families built at runtime (see
// core.MessageID), so their members never appear as literals.
var dynamicPrefixes = []string{"error."}

// Location stores the file and line number of a found message ID.
type Location struct {
	Filepath string
	Line     int
}

// report is the outcome of one lint run.
type report struct {
	Used     map[string][]Location
	Unknown  []string
	Orphaned []string
	Missing  map[string][]string
}

// Failed reports whether the catalogs need fixing. Orphans are warnings.
func (r *report) Failed() bool {
	if len(r.Unknown) > 0 {
		return true
	}
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	r, err := lint(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(2)
	}
	r.Print(os.Stdout)
	if r.Failed() {
		os.Exit(1)
	}
}

// lint scans root and compares it with the locale files below root.
func lint(root string) (*report, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	dir := filepath.Join(root, localesDir)
	primary, err := loadKeysFromLocale(filepath.Join(dir, primaryLocale))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", primaryLocale, err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	r := &report{Used: used, Missing: map[string][]string{}}
	for key := range used {
		if _, ok := primary[key]; !ok {
			r.Unknown = append(r.Unknown, key)
		}
	}
	for key := range primary {
		if _, ok := used[key]; !ok && !isDynamic(key) {
			r.Orphaned = append(r.Orphaned, key)
		}
	}
	for _, file := range files {
		name := filepath.Base(file)
		if name == primaryLocale {
			continue
		}
		secondary, err := loadKeysFromLocale(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		var missing []string
		for key := range primary {
			if _, ok := secondary[key]; !ok {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)
		r.Missing[name] = missing
	}
	sort.Strings(r.Unknown)
	sort.Strings(r.Orphaned)
	return r, nil
}

// Print writes a human-readable summary to w.
func (r *report) Print(w io.Writer) {
	fmt.Fprintf(w, "%d message IDs referenced in source code\n\n", len(r.Used))

	fmt.Fprintln(w, "--- Unknown IDs (used in code, absent from "+primaryLocale+") ---")
	if len(r.Unknown) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, key := range r.Unknown {
		loc := r.Used[key][0]
		fmt.Fprintf(w, "  - %s (%s:%d)\n", key, loc.Filepath, loc.Line)
	}

	fmt.Fprintln(w, "\n--- Missing IDs (in "+primaryLocale+" but not translated) ---")
	names := make([]string, 0, len(r.Missing))
	for name := range r.Missing {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(r.Missing[name]) == 0 {
			fmt.Fprintf(w, "  %s: complete\n", name)
			continue
		}
		for _, key := range r.Missing[name] {
			fmt.Fprintf(w, "  %s: %s\n", name, key)
		}
	}

	fmt.Fprintln(w, "\n--- Orphaned IDs (never referenced) ---")
	if len(r.Orphaned) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, key := range r.Orphaned {
		fmt.Fprintf(w, "  - %s\n", key)
	}
}

func isDynamic(key string) bool {
	for _, p := range dynamicPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

var usedKeyRe = regexp.MustCompile(`i18n\.TL?\((?:[^,()]+,\s*)?"([a-z_]+(?:\.[a-z_]+)+)"`)

// findUsedKeys scans non-test .go files for i18n.T / i18n.TL calls with a
// literal message ID. Directories starting with "_" or "." and the tools
// directory are skipped.
func findUsedKeys(root string) (map[string][]Location, error) {
	keys := make(map[string][]Location)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for i, line := range strings.Split(string(content), "\n") {
			for _, m := range usedKeyRe.FindAllStringSubmatch(line, -1) {
				keys[m[1]] = append(keys[m[1]], Location{Filepath: path, Line: i + 1})
			}
		}
		return nil
	})
	return keys, err
}

// loadKeysFromLocale reads a YAML file and returns a flat set of its keys.
// Flat dotted keys and nested maps both flatten to dotted IDs.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
