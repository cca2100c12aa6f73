package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Git runs git inside one working directory
type Git struct {
	runner Runner
	dir    string
}

// NewGit returns a Git bound to dir
func NewGit(runner Runner, dir string) *Git {
	return &Git{runner: runner, dir: dir}
}

// Dir returns the working directory the commands run in
func (g *Git) Dir() string {
	return g.dir
}

// At returns a Git bound to a path below the current directory
func (g *Git) At(subdir string) *Git {
	return &Git{runner: g.runner, dir: filepath.Join(g.dir, filepath.FromSlash(subdir))}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	return g.runner.Run(ctx, Command{Args: append([]string{"git"}, args...), Dir: g.dir})
}

// Fetch fetches the given remote
func (g *Git) Fetch(ctx context.Context, remote string) error {
	_, err := g.run(ctx, "fetch", remote)
	return err
}

// Pull pulls the current branch from its upstream
func (g *Git) Pull(ctx context.Context) error {
	_, err := g.run(ctx, "pull")
	return err
}

// Log returns the full metadata of the single commit at revision
func (g *Git) Log(ctx context.Context, revision string) (string, error) {
	return g.run(ctx, "--no-pager", "log", revision, "--pretty=full", "-1")
}

// CurrentBranch returns the name of the checked out branch
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	if branch == "" {
		return "", fmt.Errorf("git rev-parse returned no branch name in %s", g.dir)
	}
	return branch, nil
}

// Status returns the porcelain status lines of modified and untracked files
func (g *Git) Status(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Branches lists local branches and reports which one is active
func (g *Git) Branches(ctx context.Context) (active string, branches []string, err error) {
	out, err := g.run(ctx, "branch")
	if err != nil {
		return "", nil, err
	}
	active, branches = parseBranchList(out)
	return active, branches, nil
}

// parseBranchList parses `git branch` output, where the active branch is prefixed by '*'
func parseBranchList(out string) (string, []string) {
	var active string
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if after, ok := strings.CutPrefix(strings.TrimRight(line, " \t\r"), "*"); ok {
			// A detached HEAD is listed as "(HEAD detached at <rev>)" and is not a branch.
			if b := strings.TrimSpace(after); !strings.HasPrefix(b, "(") {
				active = b
				branches = append(branches, b)
			}
			continue
		}
		if b := strings.TrimSpace(line); b != "" {
			branches = append(branches, b)
		}
	}
	return active, branches
}

// CreateBranch creates a branch from HEAD and switches to it
func (g *Git) CreateBranch(ctx context.Context, name string) error {
	_, err := g.run(ctx, "checkout", "-b", name)
	return err
}

// DeleteBranch force-deletes a local branch
func (g *Git) DeleteBranch(ctx context.Context, name string) error {
	_, err := g.run(ctx, "branch", "-D", name)
	return err
}

// DeleteBranchIfExists force-deletes a local branch that may not exist
func (g *Git) DeleteBranchIfExists(ctx context.Context, name string) error {
	_, err := g.runner.Run(ctx, Command{Args: []string{"git", "branch", "-D", name}, Dir: g.dir, MayFail: true})
	return err
}

// Checkout switches to ref
func (g *Git) Checkout(ctx context.Context, ref string) error {
	_, err := g.run(ctx, "checkout", ref)
	return err
}

// Restore discards working tree changes to the given paths
func (g *Git) Restore(ctx context.Context, paths ...string) error {
	_, err := g.run(ctx, append([]string{"checkout", "--"}, paths...)...)
	return err
}

// StageAll stages every modified tracked file
func (g *Git) StageAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "--update", ".")
	return err
}

// Commit records the staged changes with message
func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Push force-pushes a local branch to the same name on remote
func (g *Git) Push(ctx context.Context, remote, branch string) error {
	_, err := g.run(ctx, "push", "--force", remote, branch)
	return err
}
