package roll

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/webrtc/autoroller/internal/commands"
	"github.com/webrtc/autoroller/internal/deps"
)

// fakeRepo models the branches and working tree of the downstream checkout
type fakeRepo struct {
	current  string
	branches map[string]bool
	dirty    []string
	commits  []string
	pulls    int
	calls    []string
	failOn   map[string]error
}

func newFakeRepo(branches ...string) *fakeRepo {
	r := &fakeRepo{current: "master", branches: map[string]bool{"master": true}, failOn: map[string]error{}}
	for _, b := range branches {
		r.branches[b] = true
	}
	return r
}

func (r *fakeRepo) record(call string) error {
	r.calls = append(r.calls, call)
	return r.failOn[call]
}

func (r *fakeRepo) mutatingCalls() []string {
	var out []string
	for _, c := range r.calls {
		if !strings.HasPrefix(c, "status") && !strings.HasPrefix(c, "current-branch") && !strings.HasPrefix(c, "branches") {
			out = append(out, c)
		}
	}
	return out
}

func (r *fakeRepo) branchList() []string {
	var list []string
	for b := range r.branches {
		list = append(list, b)
	}
	sort.Strings(list)
	return list
}

func (r *fakeRepo) CurrentBranch(context.Context) (string, error) {
	return r.current, r.record("current-branch")
}

func (r *fakeRepo) Status(context.Context) ([]string, error) {
	return slices.Clone(r.dirty), r.record("status")
}

// Branches reports a detached HEAD as no active branch, like `git branch` parsing does
func (r *fakeRepo) Branches(context.Context) (string, []string, error) {
	active := r.current
	if active == "HEAD" {
		active = ""
	}
	return active, r.branchList(), r.record("branches")
}

func (r *fakeRepo) Pull(context.Context) error {
	r.pulls++
	return r.record("pull")
}

func (r *fakeRepo) CreateBranch(_ context.Context, name string) error {
	if err := r.record("create " + name); err != nil {
		return err
	}
	if r.branches[name] {
		return fmt.Errorf("branch %s already exists", name)
	}
	r.branches[name] = true
	r.current = name
	return nil
}

func (r *fakeRepo) DeleteBranch(_ context.Context, name string) error {
	if err := r.record("delete " + name); err != nil {
		return err
	}
	if !r.branches[name] {
		return &commands.CommandError{ExitCode: 1, Output: "branch not found"}
	}
	if r.current == name {
		return &commands.CommandError{ExitCode: 1, Output: "cannot delete the checked out branch"}
	}
	delete(r.branches, name)
	return nil
}

func (r *fakeRepo) DeleteBranchIfExists(ctx context.Context, name string) error {
	return r.DeleteBranch(ctx, name)
}

func (r *fakeRepo) Checkout(_ context.Context, ref string) error {
	if err := r.record("checkout " + ref); err != nil {
		return err
	}
	if !r.branches[ref] {
		return fmt.Errorf("unknown ref %s", ref)
	}
	r.current = ref
	return nil
}

func (r *fakeRepo) Restore(_ context.Context, paths ...string) error {
	if err := r.record("restore " + strings.Join(paths, " ")); err != nil {
		return err
	}
	r.dirty = slices.DeleteFunc(r.dirty, func(line string) bool {
		return slices.Contains(paths, strings.TrimSpace(line[2:]))
	})
	return nil
}

func (r *fakeRepo) StageAll(context.Context) error {
	return r.record("stage")
}

func (r *fakeRepo) Commit(_ context.Context, message string) error {
	if err := r.record("commit"); err != nil {
		return err
	}
	r.commits = append(r.commits, message)
	r.dirty = nil
	return nil
}

func (r *fakeRepo) markDirty(path string) {
	line := " M " + path
	if !slices.Contains(r.dirty, line) {
		r.dirty = append(r.dirty, line)
	}
}

// fakePinner marks the pin file dirty when a pin moves
type fakePinner struct {
	repo   *fakeRepo
	set    []string
	failOn map[string]error
}

func (p *fakePinner) SetPin(_ context.Context, spec deps.DependencySpec, revision string) error {
	if err := p.failOn[spec.Path]; err != nil {
		return err
	}
	p.set = append(p.set, spec.Path+"@"+revision)
	if spec.Revision != revision {
		p.repo.markDirty("DEPS")
	}
	return nil
}

// fakeUpstream serves commit metadata for one dependency
type fakeUpstream struct {
	commits map[string]int // hash -> commit position
	tip     string
	fetches int
	logs    map[string]string // overrides for specific revisions
}

func (u *fakeUpstream) Fetch(context.Context, string) error {
	u.fetches++
	return nil
}

func (u *fakeUpstream) Log(_ context.Context, revision string) (string, error) {
	if revision == "origin" {
		revision = u.tip
	}
	if out, ok := u.logs[revision]; ok {
		return out, nil
	}
	seq, ok := u.commits[revision]
	if !ok {
		return "", &commands.CommandError{ExitCode: 128, Output: "fatal: bad object " + revision}
	}
	return gitLog(revision, seq), nil
}

func gitLog(hash string, sequence int) string {
	return fmt.Sprintf(`commit %s
Author: Someone <someone@webrtc.org>
Commit: Someone <someone@webrtc.org>

    Some upstream change.

    Review URL: https://codereview.webrtc.org/1
    Cr-Commit-Position: refs/heads/master@{#%d}
    Cr-Original-Commit-Position: refs/heads/master@{#%d}
`, hash, sequence, sequence)
}

// fakeReviewer records the review tool calls
type fakeReviewer struct {
	uploads    []string
	issue      *ReviewInfo
	issueErr   error
	autoMerges int
	closes     int
	closeErr   error
}

func (f *fakeReviewer) Upload(_ context.Context, message string) error {
	f.uploads = append(f.uploads, message)
	return nil
}

func (f *fakeReviewer) Issue(context.Context) (*ReviewInfo, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return f.issue, nil
}

func (f *fakeReviewer) SetAutoMerge(context.Context) error {
	f.autoMerges++
	return nil
}

func (f *fakeReviewer) Close(context.Context) error {
	f.closes++
	return f.closeErr
}
