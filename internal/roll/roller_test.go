package roll

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webrtc/autoroller/cmd"
	"github.com/webrtc/autoroller/internal/commands"
	"github.com/webrtc/autoroller/internal/config"
)

const (
	webrtcOld = "1111111aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	webrtcNew = "2222222bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	jingleOld = "3333333ccccccccccccccccccccccccccccccccc"
	jingleNew = "4444444ddddddddddddddddddddddddddddddddd"

	webrtcPath = "third_party/webrtc"
	jinglePath = "third_party/libjingle/source/talk"
	rollBranch = "special_webrtc_roll_branch"
)

const testDEPS = `vars = {
  'chromium_git': 'https://chromium.googlesource.com',
}

deps = {
  'src/third_party/webrtc':
    Var('chromium_git') + '/external/webrtc/trunk/webrtc.git' + '@' + '` + webrtcOld + `',
  'src/third_party/libjingle/source/talk':
    Var('chromium_git') + '/external/webrtc/trunk/talk.git' + '@' + '` + jingleOld + `',
}
`

type fixture struct {
	roller    *Roller
	repo      *fakeRepo
	pinner    *fakePinner
	reviewer  *fakeReviewer
	upstreams map[string]*fakeUpstream
	dir       string
	out       *bytes.Buffer
}

func newFixture(t *testing.T, webrtcTip, jingleTip string) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DEPS"), []byte(testDEPS), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "third_party", "libjingle"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "third_party", "libjingle", "README.chromium"),
		[]byte("Name: Libjingle\nRevision: 300\n"), 0644))

	repo := newFakeRepo()
	f := &fixture{
		repo:     repo,
		pinner:   &fakePinner{repo: repo, failOn: map[string]error{}},
		reviewer: &fakeReviewer{issue: &ReviewInfo{Issue: 1234, URL: "https://codereview.chromium.org/1234", Host: "codereview.chromium.org"}},
		upstreams: map[string]*fakeUpstream{
			webrtcPath: {commits: map[string]int{webrtcOld: 100, webrtcNew: 105}, tip: webrtcTip},
			jinglePath: {commits: map[string]int{jingleOld: 300, jingleNew: 302}, tip: jingleTip},
		},
		dir: dir,
		out: &bytes.Buffer{},
	}
	f.roller = &Roller{
		Config:   config.Default(),
		Checkout: dir,
		Git:      repo,
		Upstream: func(path string) Upstream { return f.upstreams[path] },
		Pinner:   f.pinner,
		Reviewer: f.reviewer,
		Out:      f.out,
	}
	return f
}

func (f *fixture) readme(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, "third_party", "libjingle", "README.chromium"))
	require.NoError(t, err)
	return string(data)
}

func TestPrepareRoll_NoOp(t *testing.T) {
	f := newFixture(t, webrtcOld, jingleOld)

	for run := 0; run < 2; run++ {
		result, err := f.roller.PrepareRoll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoOp, result.Outcome)
	}

	assert.Equal(t, []string{"master"}, f.repo.branchList())
	assert.Equal(t, "master", f.repo.current)
	assert.Empty(t, f.repo.commits)
	assert.Empty(t, f.pinner.set)
	assert.Empty(t, f.reviewer.uploads)
	assert.Contains(t, f.out.String(), "No changes detected")
	assert.Equal(t, 0, ExitCode(nil))
}

func TestPrepareRoll_OneDependencyBehind(t *testing.T) {
	f := newFixture(t, webrtcNew, jingleOld)

	result, err := f.roller.PrepareRoll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeQueued, result.Outcome)
	assert.Equal(t, []string{"src/third_party/webrtc@" + webrtcNew}, f.pinner.set)
	require.Len(t, f.repo.commits, 1)

	description := f.repo.commits[0]
	assert.True(t, strings.HasPrefix(description, "Roll WebRTC 100:105\n\n"))
	assert.Contains(t, description, "Changes: https://chromium.googlesource.com/external/webrtc/trunk/webrtc.git/+log/1111111..2222222")
	assert.NotContains(t, description, "Libjingle")
	assert.Equal(t, 1, strings.Count(description, "Changes: "))
	assert.True(t, strings.HasSuffix(description, "TBR="))

	assert.Equal(t, []string{description}, f.reviewer.uploads)
	assert.Equal(t, 1, f.reviewer.autoMerges)
	assert.Equal(t, []string{"master"}, f.repo.branchList())
	assert.Equal(t, "master", f.repo.current)
	assert.Equal(t, 1, f.repo.pulls)
	assert.Equal(t, "Name: Libjingle\nRevision: 300\n", f.readme(t))
	assert.Contains(t, f.out.String(), "https://codereview.chromium.org/1234")
}

func TestPrepareRoll_LeftForFollowUp(t *testing.T) {
	tests := []struct {
		name    string
		options Options
	}{
		{"dry run", Options{DryRun: true}},
		{"no commit", Options{NoCommit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, webrtcNew, jingleNew)
			f.roller.Options = tt.options

			result, err := f.roller.PrepareRoll(context.Background())
			require.NoError(t, err)

			assert.Equal(t, OutcomeUploaded, result.Outcome)
			assert.Len(t, f.repo.commits, 1)
			assert.Len(t, f.reviewer.uploads, 1)
			assert.Equal(t, 0, f.reviewer.autoMerges)
			assert.Contains(t, f.repo.branchList(), rollBranch)
			assert.Equal(t, rollBranch, f.repo.current)
			assert.Equal(t, 1234, result.Review.Issue)

			assert.True(t, strings.HasPrefix(result.Description, "Roll WebRTC 100:105, Libjingle 300:302\n\n"))
			assert.Equal(t, "Name: Libjingle\nRevision: 302\n", f.readme(t))
		})
	}
}

func TestPrepareRoll_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *fakeRepo)
	}{
		{
			name: "not on the base branch",
			setup: func(r *fakeRepo) {
				r.branches["feature"] = true
				r.current = "feature"
			},
		},
		{
			name: "uncommitted changes",
			setup: func(r *fakeRepo) {
				r.markDirty("chrome/browser/foo.cc")
			},
		},
		{
			name: "untracked files",
			setup: func(r *fakeRepo) {
				r.dirty = append(r.dirty, "?? new_file.txt")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, webrtcNew, jingleNew)
			tt.setup(f.repo)
			branchesBefore := f.repo.branchList()

			_, err := f.roller.PrepareRoll(context.Background())

			var precondition *PreconditionError
			require.ErrorAs(t, err, &precondition)
			assert.Equal(t, -1, ExitCode(err))
			assert.Empty(t, f.repo.mutatingCalls())
			assert.Equal(t, branchesBefore, f.repo.branchList())
			assert.Equal(t, 0, f.upstreams[webrtcPath].fetches)
		})
	}
}

func TestPrepareRoll_IgnoreChecksReturnsToActiveBranch(t *testing.T) {
	f := newFixture(t, webrtcNew, jingleOld)
	f.repo.branches["feature"] = true
	f.repo.current = "feature"
	f.roller.Options = Options{IgnoreChecks: true}

	result, err := f.roller.PrepareRoll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeQueued, result.Outcome)
	assert.Equal(t, 0, f.repo.pulls)
	assert.Equal(t, "feature", f.repo.current)
	assert.NotContains(t, f.repo.branchList(), rollBranch)
}

func TestPrepareRoll_ParseFailureLeavesNothing(t *testing.T) {
	f := newFixture(t, webrtcNew, jingleNew)
	f.upstreams[jinglePath].logs = map[string]string{jingleNew: "commit " + jingleNew + "\n\n    No position footer.\n"}

	_, err := f.roller.PrepareRoll(context.Background())

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, -1, ExitCode(err))
	assert.Equal(t, []string{"pull"}, f.repo.mutatingCalls())
	assert.Equal(t, []string{"master"}, f.repo.branchList())
}

func TestPrepareRoll_MissingPin(t *testing.T) {
	f := newFixture(t, webrtcNew, jingleNew)
	f.roller.Config.Dependencies = append(f.roller.Config.Dependencies, cmd.Dependency{Name: "Missing", Path: "third_party/missing"})

	_, err := f.roller.PrepareRoll(context.Background())

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, []string{"master"}, f.repo.branchList())
}

func TestPrepareRoll_UpstreamCommandFailure(t *testing.T) {
	f := newFixture(t, webrtcNew, "0000000unknown")

	_, err := f.roller.PrepareRoll(context.Background())

	require.Error(t, err)
	assert.Equal(t, 128, ExitCode(err))
	assert.Equal(t, []string{"master"}, f.repo.branchList())
}

func TestPrepareRoll_PinFailureDiscardsBranch(t *testing.T) {
	f := newFixture(t, webrtcNew, jingleNew)
	f.pinner.failOn["src/"+jinglePath] = &commands.CommandError{ExitCode: 5, Output: "roll-dep failed"}

	_, err := f.roller.PrepareRoll(context.Background())

	require.Error(t, err)
	assert.Equal(t, 5, ExitCode(err))
	assert.Equal(t, []string{"src/third_party/webrtc@" + webrtcNew}, f.pinner.set)
	assert.Contains(t, f.repo.calls, "restore DEPS")
	assert.Empty(t, f.repo.dirty)
	assert.Empty(t, f.repo.commits)
	assert.Equal(t, []string{"master"}, f.repo.branchList())
	assert.Equal(t, "master", f.repo.current)
}

func TestPrepareRoll_StaleBranchReplaced(t *testing.T) {
	f := newFixture(t, webrtcNew, jingleOld)
	f.repo.branches[rollBranch] = true
	f.roller.Options = Options{NoCommit: true}

	_, err := f.roller.PrepareRoll(context.Background())
	require.NoError(t, err)

	deleteAt := indexOf(f.repo.calls, "delete "+rollBranch)
	createAt := indexOf(f.repo.calls, "create "+rollBranch)
	require.GreaterOrEqual(t, deleteAt, 0)
	assert.Less(t, deleteAt, createAt)
	assert.Equal(t, []string{"master", rollBranch}, f.repo.branchList())
}

func TestPrepareRoll_IssueParseFailureIsRecoverableWithAbort(t *testing.T) {
	f := newFixture(t, webrtcNew, jingleOld)
	f.reviewer.issueErr = &ParseError{What: "review issue", Input: "Issue number: None (None)"}

	_, err := f.roller.PrepareRoll(context.Background())
	require.Error(t, err)
	assert.Equal(t, -1, ExitCode(err))
	assert.Len(t, f.repo.commits, 1)
	assert.Contains(t, f.repo.branchList(), rollBranch)

	aborted, err := f.roller.Abort(context.Background())
	require.NoError(t, err)
	assert.True(t, aborted)
	assert.Equal(t, []string{"master"}, f.repo.branchList())
	assert.Equal(t, "master", f.repo.current)
}

func TestAbort(t *testing.T) {
	tests := []struct {
		name          string
		active        string
		pending       bool
		closeErr      error
		expectAborted bool
		expectCurrent string
	}{
		{name: "no pending roll", active: "master", expectCurrent: "master"},
		{name: "pending roll from base branch", active: "master", pending: true, expectAborted: true, expectCurrent: "master"},
		{name: "pending roll is active", active: rollBranch, pending: true, expectAborted: true, expectCurrent: "master"},
		{name: "pending roll from feature branch", active: "feature", pending: true, expectAborted: true, expectCurrent: "feature"},
		{name: "pending roll from detached head", active: "HEAD", pending: true, expectAborted: true, expectCurrent: "master"},
		{name: "review close fails", active: "master", pending: true, closeErr: errors.New("no issue"), expectAborted: true, expectCurrent: "master"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, webrtcOld, jingleOld)
			f.repo.branches["feature"] = true
			if tt.pending {
				f.repo.branches[rollBranch] = true
			}
			f.repo.current = tt.active
			f.reviewer.closeErr = tt.closeErr

			aborted, err := f.roller.Abort(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expectAborted, aborted)
			assert.Equal(t, tt.expectCurrent, f.repo.current)
			assert.NotContains(t, f.repo.branchList(), rollBranch)

			if tt.pending {
				assert.Equal(t, 1, f.reviewer.closes)
				assert.Contains(t, f.out.String(), "Aborting pending roll.")
			} else {
				assert.Empty(t, f.repo.mutatingCalls())
			}
		})
	}
}

func TestAbort_Idempotent(t *testing.T) {
	f := newFixture(t, webrtcOld, jingleOld)
	f.repo.branches[rollBranch] = true

	aborted, err := f.roller.Abort(context.Background())
	require.NoError(t, err)
	assert.True(t, aborted)

	aborted, err = f.roller.Abort(context.Background())
	require.NoError(t, err)
	assert.False(t, aborted)
	assert.Equal(t, 1, f.reviewer.closes)
}

func indexOf(list []string, item string) int {
	for i, v := range list {
		if v == item {
			return i
		}
	}
	return -1
}
