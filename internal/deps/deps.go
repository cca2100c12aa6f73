// Package deps reads and rewrites the dependency pins of a DEPS file.
package deps

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DependencySpec is one pinned dependency as declared in the pin file
type DependencySpec struct {
	Path     string // key in the deps dict, e.g. "src/third_party/webrtc"
	RepoURL  string
	Revision string
}

// File is the evaluated content of a pin file
type File struct {
	Vars map[string]any
	Deps map[string]DependencySpec
}

var varRefRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ParseFile reads and parses the pin file at path
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is inside the checkout given on the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read pin file: %w", err)
	}
	f, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

// Parse evaluates pin file content. Entries that do not pin a git repository (None, cipd
// packages, unevaluated calls) are skipped.
func Parse(content string) (*File, error) {
	scope, err := parse(content)
	if err != nil {
		return nil, err
	}

	f := &File{Vars: map[string]any{}, Deps: map[string]DependencySpec{}}
	if vars, ok := scope["vars"].(map[string]any); ok {
		f.Vars = vars
	}

	rawDeps, ok := scope["deps"]
	if !ok {
		return f, nil
	}
	depsDict, ok := rawDeps.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("deps must be a dict")
	}

	for path, value := range depsDict {
		entry, ok := entryString(value)
		if !ok {
			continue
		}
		url, revision := SplitEntry(f.expand(entry))
		f.Deps[path] = DependencySpec{Path: path, RepoURL: url, Revision: revision}
	}
	return f, nil
}

// entryString extracts the "url@revision" string from a plain or dict-form deps value
func entryString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case map[string]any:
		if depType, _ := v["dep_type"].(string); depType != "" && depType != "git" {
			return "", false
		}
		url, ok := v["url"].(string)
		return url, ok
	}
	return "", false
}

// expand replaces {name} references with string vars
func (f *File) expand(s string) string {
	return varRefRe.ReplaceAllStringFunc(s, func(ref string) string {
		if v, ok := f.Vars[ref[1:len(ref)-1]].(string); ok {
			return v
		}
		return ref
	})
}

// SplitEntry splits "url@revision" at the last '@'; without one the revision is empty
func SplitEntry(entry string) (url, revision string) {
	at := strings.LastIndex(entry, "@")
	if at < 0 {
		return entry, ""
	}
	return entry[:at], entry[at+1:]
}

// Lookup returns the dependency pinned under path
func (f *File) Lookup(path string) (DependencySpec, error) {
	spec, ok := f.Deps[path]
	if !ok {
		return DependencySpec{}, fmt.Errorf("no dependency %s in pin file", path)
	}
	if spec.Revision == "" {
		return DependencySpec{}, fmt.Errorf("dependency %s is not pinned to a revision", path)
	}
	return spec, nil
}
