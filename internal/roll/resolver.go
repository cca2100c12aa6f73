package roll

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/webrtc/autoroller/cmd"
	"github.com/webrtc/autoroller/internal/deps"
)

// SequencePattern matches the upstream commit position footer of a commit message
var SequencePattern = regexp.MustCompile(`^Cr-Original-Commit-Position: .*#([0-9]+).*$`)

// Resolver finds the pinned and the latest upstream commit of each dependency
type Resolver struct {
	Pins     *deps.File
	Prefix   string                     // prepended to a dependency path to form its pin key
	Upstream func(path string) Upstream // git of the dependency checked out at path
}

// CurrentVersion returns the commit the pin file currently pins dep to
func (r *Resolver) CurrentVersion(ctx context.Context, dep cmd.Dependency) (CommitInfo, error) {
	spec, err := r.Pins.Lookup(r.Prefix + dep.Path)
	if err != nil {
		return CommitInfo{}, &ParseError{What: "pinned revision of " + dep.Name, Input: err.Error()}
	}
	return r.commitInfo(ctx, dep.Path, spec.Revision, spec.RepoURL)
}

// LatestVersion returns the tip of the dependency's upstream default branch
func (r *Resolver) LatestVersion(ctx context.Context, dep cmd.Dependency) (CommitInfo, error) {
	return r.commitInfo(ctx, dep.Path, "", "")
}

// Resolve returns the current and latest versions of every dependency, in order: all current
// versions first, then all latest ones
func (r *Resolver) Resolve(ctx context.Context, dependencies []cmd.Dependency) ([]Versions, error) {
	versions := make([]Versions, len(dependencies))
	for i, dep := range dependencies {
		current, err := r.CurrentVersion(ctx, dep)
		if err != nil {
			return nil, err
		}
		versions[i] = Versions{Dependency: dep, Current: current}
	}

	for i, dep := range dependencies {
		latest, err := r.LatestVersion(ctx, dep)
		if err != nil {
			return nil, err
		}
		latest.RepoURL = versions[i].Current.RepoURL
		versions[i].Latest = latest
		slog.Debug("Resolved dependency", "name", dep.Name,
			"current", versions[i].Current.Sequence, "latest", latest.Sequence, "changed", versions[i].Changed())
	}
	return versions, nil
}

func (r *Resolver) commitInfo(ctx context.Context, path, revision, repoURL string) (CommitInfo, error) {
	upstream := r.Upstream(path)
	if err := upstream.Fetch(ctx, "origin"); err != nil {
		return CommitInfo{}, fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if revision == "" {
		revision = "origin"
	}
	description, err := upstream.Log(ctx, revision)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("failed to read commit %s of %s: %w", revision, path, err)
	}

	sequence, err := ParseSequenceNumber(description)
	if err != nil {
		return CommitInfo{}, err
	}
	commit, err := ParseCommitID(description)
	if err != nil {
		return CommitInfo{}, err
	}
	return CommitInfo{Sequence: sequence, Commit: commit, RepoURL: repoURL}, nil
}

// ParseSequenceNumber extracts the last commit position footer from full commit metadata
func ParseSequenceNumber(description string) (int, error) {
	lines := strings.Split(description, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		m := SequencePattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			break
		}
		return n, nil
	}
	return 0, &ParseError{What: "upstream commit position", Input: description}
}

// ParseCommitID extracts the hash from the "commit <hash>" header of git log output
func ParseCommitID(description string) (string, error) {
	for _, line := range strings.Split(description, "\n") {
		if after, ok := strings.CutPrefix(line, "commit "); ok {
			if fields := strings.Fields(after); len(fields) > 0 {
				return fields[0], nil
			}
		}
	}
	return "", &ParseError{What: "git commit id", Input: description}
}
