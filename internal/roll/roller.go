package roll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/webrtc/autoroller/cmd"
	"github.com/webrtc/autoroller/internal/commands"
	"github.com/webrtc/autoroller/internal/deps"
)

// Outcome is how a successful PrepareRoll ended
type Outcome int

const (
	// OutcomeNoOp means every dependency was already at its latest revision
	OutcomeNoOp Outcome = iota
	// OutcomeUploaded means the change was uploaded and the roll branch left for manual follow-up
	OutcomeUploaded
	// OutcomeQueued means the change was queued for automatic merge and the roll branch deleted
	OutcomeQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoOp:
		return "no-op"
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeQueued:
		return "queued"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes a completed PrepareRoll
type Result struct {
	Outcome     Outcome
	Versions    []Versions
	Description string
	Review      *ReviewInfo
}

// Options are the command line switches that change the roll flow
type Options struct {
	DryRun       bool
	NoCommit     bool
	IgnoreChecks bool
}

// Roller prepares and aborts dependency rolls in one downstream checkout
type Roller struct {
	Config   *cmd.Config
	Checkout string
	Git      Git
	Upstream func(path string) Upstream
	Pinner   deps.Pinner
	Reviewer Reviewer
	Options  Options
	Out      io.Writer // user-facing progress messages
}

func (r *Roller) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

// CheckPreconditions ensures the checkout is on the base branch with a clean tree
func (r *Roller) CheckPreconditions(ctx context.Context) error {
	if r.Options.IgnoreChecks {
		return nil
	}

	err := commands.ValidateWorkspace(ctx, r.Git, r.Config.BaseBranch)
	var issue *commands.WorkspaceIssue
	if errors.As(err, &issue) {
		return &PreconditionError{Reason: issue.Reason}
	}
	return err
}

// PrepareRoll rolls every configured dependency to its upstream tip and uploads the change
func (r *Roller) PrepareRoll(ctx context.Context) (*Result, error) {
	if err := r.CheckPreconditions(ctx); err != nil {
		return nil, err
	}

	if !r.Options.IgnoreChecks {
		slog.Debug("Pulling latest changes")
		if err := r.Git.Pull(ctx); err != nil {
			return nil, fmt.Errorf("failed to pull %s: %w", r.Config.BaseBranch, err)
		}
	}

	pinFile, err := deps.ParseFile(filepath.Join(r.Checkout, r.Config.PinFile))
	if err != nil {
		return nil, &ParseError{What: "dependency pins", Input: err.Error()}
	}

	resolver := &Resolver{Pins: pinFile, Prefix: r.Config.PinPrefix, Upstream: r.Upstream}
	versions, err := resolver.Resolve(ctx, r.Config.Dependencies)
	if err != nil {
		return nil, err
	}
	pins := make([]deps.DependencySpec, len(versions))
	for i, v := range versions {
		// Resolve already looked every pin up successfully.
		pins[i], _ = pinFile.Lookup(r.Config.PinPrefix + v.Dependency.Path)
	}

	session := NewSession(r.Git, r.Config.RollBranch, r.Config.BaseBranch)
	if err := session.Create(ctx); err != nil {
		return nil, err
	}

	restore := r.touchedFiles()
	if err := session.ApplyBump(ctx, r.Pinner, pins, versions); err != nil {
		session.Discard(ctx, restore...)
		return nil, err
	}

	noop, err := session.DetectNoOp(ctx)
	if err != nil {
		session.Discard(ctx, restore...)
		return nil, err
	}
	if noop {
		fmt.Fprintln(r.out(), "No changes detected, all dependencies are at their latest revision.")
		return &Result{Outcome: OutcomeNoOp, Versions: versions}, nil
	}

	if err := r.updateReadmes(versions); err != nil {
		session.Discard(ctx, restore...)
		return nil, err
	}

	description := Description(versions, r.Config.Reviewers)
	if err := session.Commit(ctx, description); err != nil {
		session.Discard(ctx, restore...)
		return nil, err
	}

	return r.submit(ctx, session, versions, description)
}

// submit uploads the committed roll and, unless told otherwise, queues it and deletes the branch
func (r *Roller) submit(ctx context.Context, session *Session, versions []Versions, description string) (*Result, error) {
	slog.Debug("Uploading changes")
	if err := r.Reviewer.Upload(ctx, description); err != nil {
		return nil, fmt.Errorf("failed to upload roll: %w", err)
	}

	info, err := r.Reviewer.Issue(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("Uploaded roll", "issue", info.Issue, "url", info.URL, "host", info.Host)

	result := &Result{Outcome: OutcomeUploaded, Versions: versions, Description: description, Review: info}
	if r.Options.DryRun || r.Options.NoCommit {
		fmt.Fprintf(r.out(), "Uploaded roll to %s, branch %s left for follow-up.\n", info.URL, session.Branch())
		return result, nil
	}

	slog.Debug("Sending the change to the commit queue")
	if err := r.Reviewer.SetAutoMerge(ctx); err != nil {
		return nil, fmt.Errorf("failed to queue %s for merge: %w", info.URL, err)
	}
	fmt.Fprintf(r.out(), "Sent the roll to the commit queue. Monitor here:\n%s\n", info.URL)

	if err := session.Close(ctx); err != nil {
		return nil, err
	}
	result.Outcome = OutcomeQueued
	return result, nil
}

// touchedFiles lists the checkout-relative files a roll may modify before it is committed
func (r *Roller) touchedFiles() []string {
	files := []string{r.Config.PinFile}
	for _, dep := range r.Config.Dependencies {
		if dep.Readme != "" {
			files = append(files, dep.Readme)
		}
	}
	return files
}

func (r *Roller) updateReadmes(versions []Versions) error {
	for _, v := range versions {
		if v.Dependency.Readme == "" {
			continue
		}
		path := filepath.Join(r.Checkout, filepath.FromSlash(v.Dependency.Readme))
		if err := deps.UpdateReadmeRevision(path, v.Latest.Sequence); err != nil {
			return fmt.Errorf("failed to update revision marker of %s: %w", v.Dependency.Name, err)
		}
	}
	return nil
}

// Abort closes the review of a pending roll and deletes its branch. It reports whether a
// pending roll was found.
func (r *Roller) Abort(ctx context.Context) (bool, error) {
	active, branches, err := r.Git.Branches(ctx)
	if err != nil {
		return false, err
	}

	rollBranch := r.Config.RollBranch
	if !slices.Contains(branches, rollBranch) {
		slog.Debug("No pending roll branch", "branch", rollBranch)
		return false, nil
	}
	if active == rollBranch || active == "" || active == "HEAD" {
		active = r.Config.BaseBranch
	}

	fmt.Fprintln(r.out(), "Aborting pending roll.")
	if err := r.Git.Checkout(ctx, rollBranch); err != nil {
		return false, fmt.Errorf("failed to checkout %s: %w", rollBranch, err)
	}
	// The review may never have been created.
	if err := r.Reviewer.Close(ctx); err != nil {
		slog.Debug("Could not close review of the pending roll", "error", err)
	}
	if err := r.Git.Checkout(ctx, active); err != nil {
		return false, fmt.Errorf("failed to checkout %s: %w", active, err)
	}
	if err := r.Git.DeleteBranch(ctx, rollBranch); err != nil {
		return false, fmt.Errorf("failed to delete roll branch %s: %w", rollBranch, err)
	}
	return true, nil
}
