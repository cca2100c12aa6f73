package roll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/webrtc/autoroller/internal/commands"
	"github.com/webrtc/autoroller/internal/deps"
)

// State is the lifecycle position of the roll branch
type State int

const (
	// StateIdle means no roll branch is owned by the session
	StateIdle State = iota
	// StateBranchCreated means a fresh roll branch is checked out
	StateBranchCreated
	// StateBumpApplied means the pins were rewritten on the roll branch
	StateBumpApplied
	// StateNoOpDetected means the rewrite changed nothing
	StateNoOpDetected
	// StateCommitted means the roll is committed on the roll branch
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBranchCreated:
		return "branch-created"
	case StateBumpApplied:
		return "bump-applied"
	case StateNoOpDetected:
		return "no-op"
	case StateCommitted:
		return "committed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns the reserved roll branch from creation until it is deleted or handed over
type Session struct {
	git      Git
	branch   string
	base     string
	returnTo string
	state    State
}

// NewSession returns an idle session for the reserved branch name
func NewSession(git Git, branch, base string) *Session {
	return &Session{git: git, branch: branch, base: base, state: StateIdle}
}

// State returns the current lifecycle position
func (s *Session) State() State {
	return s.state
}

// Branch returns the reserved branch name
func (s *Session) Branch() string {
	return s.branch
}

func (s *Session) require(want State) error {
	if s.state != want {
		return fmt.Errorf("roll session is %s, expected %s", s.state, want)
	}
	return nil
}

// Create deletes any stale roll branch and checks out a fresh one from HEAD
func (s *Session) Create(ctx context.Context) error {
	if err := s.require(StateIdle); err != nil {
		return err
	}

	s.returnTo = s.base
	current, err := s.git.CurrentBranch(ctx)
	if err == nil && current != "HEAD" && current != s.branch {
		s.returnTo = current
	}
	// A checked out branch cannot be deleted.
	if current == s.branch {
		slog.Debug("Leaving the previous roll branch", "branch", s.branch, "checkout", s.returnTo)
		if err := s.git.Checkout(ctx, s.returnTo); err != nil {
			return fmt.Errorf("failed to checkout %s: %w", s.returnTo, err)
		}
	}

	slog.Debug("Checking for a previous roll branch", "branch", s.branch)
	if err := s.git.DeleteBranchIfExists(ctx, s.branch); err != nil {
		slog.Debug("No stale roll branch deleted", "branch", s.branch, "error", err)
	}

	if err := s.git.CreateBranch(ctx, s.branch); err != nil {
		return fmt.Errorf("failed to create roll branch %s: %w", s.branch, err)
	}
	s.state = StateBranchCreated
	return nil
}

// ApplyBump rewrites every changed pin to its latest revision. All pins are applied before
// the no-op decision is taken.
func (s *Session) ApplyBump(ctx context.Context, pinner deps.Pinner, pins []deps.DependencySpec, versions []Versions) error {
	if err := s.require(StateBranchCreated); err != nil {
		return err
	}

	for i, v := range versions {
		if !v.Changed() {
			continue
		}
		slog.Debug("Updating pin", "name", v.Dependency.Name, "revision", v.Latest.Commit)
		if err := pinner.SetPin(ctx, pins[i], v.Latest.Commit); err != nil {
			return fmt.Errorf("failed to update pin of %s: %w", v.Dependency.Name, err)
		}
	}
	s.state = StateBumpApplied
	return nil
}

// DetectNoOp deletes the roll branch and reports true when the bump left the tree clean
func (s *Session) DetectNoOp(ctx context.Context) (bool, error) {
	if err := s.require(StateBumpApplied); err != nil {
		return false, err
	}

	clean, err := commands.IsTreeClean(ctx, s.git)
	if err != nil {
		return false, err
	}
	if !clean {
		return false, nil
	}

	slog.Debug("Tree is clean - no changes detected")
	s.state = StateNoOpDetected
	if err := s.Close(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Commit stages every modified tracked file and commits it with message
func (s *Session) Commit(ctx context.Context, message string) error {
	if err := s.require(StateBumpApplied); err != nil {
		return err
	}

	slog.Debug("Committing changes locally")
	if err := s.git.StageAll(ctx); err != nil {
		return fmt.Errorf("failed to stage roll: %w", err)
	}
	if err := s.git.Commit(ctx, message); err != nil {
		return fmt.Errorf("failed to commit roll: %w", err)
	}
	s.state = StateCommitted
	return nil
}

// Close checks out the branch that was active before the roll and deletes the roll branch
func (s *Session) Close(ctx context.Context) error {
	if s.state == StateIdle {
		return nil
	}

	if err := s.git.Checkout(ctx, s.returnTo); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", s.returnTo, err)
	}
	if err := s.git.DeleteBranch(ctx, s.branch); err != nil {
		return fmt.Errorf("failed to delete roll branch %s: %w", s.branch, err)
	}
	slog.Debug("Deleted the local roll branch", "branch", s.branch)
	s.state = StateIdle
	return nil
}

// Discard throws away an uncommitted roll: the given paths are restored and the branch is
// deleted. Failures are logged, not returned, since Discard runs on an error path already.
func (s *Session) Discard(ctx context.Context, paths ...string) {
	if s.state != StateBranchCreated && s.state != StateBumpApplied {
		return
	}

	slog.Debug("Discarding uncommitted roll", "branch", s.branch, "state", s.state)
	for _, path := range paths {
		if err := s.git.Restore(ctx, path); err != nil {
			slog.Warn("Failed to restore roll file", "path", path, "error", err)
		}
	}
	if err := s.Close(ctx); err != nil {
		slog.Warn("Failed to delete roll branch, run with --abort to clean up", "branch", s.branch, "error", err)
	}
}
