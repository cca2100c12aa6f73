package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/webrtc/autoroller/internal/github"
	"github.com/webrtc/autoroller/internal/roll"
)

// ErrNoPullRequest is returned when the current branch has no open pull request
var ErrNoPullRequest = errors.New("no open pull request for the current branch")

// PullRequests is the part of the GitHub client the backend uses
type PullRequests interface {
	FindOpenPR(ctx context.Context, branch string) (*github.PR, error)
	CreatePR(ctx context.Context, title, body, head, base string) (*github.PR, error)
	UpdatePR(ctx context.Context, number int, title, body string) error
	AddLabels(ctx context.Context, number int, labels ...string) error
	ClosePR(ctx context.Context, number int) error
}

// BranchPusher publishes the local roll branch
type BranchPusher interface {
	CurrentBranch(ctx context.Context) (string, error)
	Push(ctx context.Context, remote, branch string) error
}

// GitHub submits the roll as a pull request against the base branch
type GitHub struct {
	Client         PullRequests
	Git            BranchPusher
	Remote         string
	BaseBranch     string
	AutoMergeLabel string
}

// Upload pushes the current branch and opens a pull request, or refreshes the existing one
func (g *GitHub) Upload(ctx context.Context, message string) error {
	branch, err := g.Git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if err := g.Git.Push(ctx, g.Remote, branch); err != nil {
		return fmt.Errorf("failed to push %s: %w", branch, err)
	}

	title, body, _ := strings.Cut(message, "\n")
	body = strings.TrimLeft(body, "\n")

	pr, err := g.Client.FindOpenPR(ctx, branch)
	if err != nil {
		return err
	}
	if pr != nil {
		slog.Info("Updating existing pull request", "pr", pr.Number, "branch", branch)
		return g.Client.UpdatePR(ctx, pr.Number, title, body)
	}

	pr, err = g.Client.CreatePR(ctx, title, body, branch, g.BaseBranch)
	if err != nil {
		return err
	}
	slog.Info("Created pull request", "pr", pr.Number, "url", pr.URL)
	return nil
}

func (g *GitHub) currentPR(ctx context.Context) (*github.PR, error) {
	branch, err := g.Git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	pr, err := g.Client.FindOpenPR(ctx, branch)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPullRequest, branch)
	}
	return pr, nil
}

// Issue returns the pull request of the current branch
func (g *GitHub) Issue(ctx context.Context) (*roll.ReviewInfo, error) {
	pr, err := g.currentPR(ctx)
	if err != nil {
		return nil, err
	}
	return NewInfo(pr.Number, pr.URL)
}

// SetAutoMerge labels the pull request so the merge bot picks it up
func (g *GitHub) SetAutoMerge(ctx context.Context) error {
	if g.AutoMergeLabel == "" {
		return fmt.Errorf("github.auto_merge_label is not configured")
	}
	pr, err := g.currentPR(ctx)
	if err != nil {
		return err
	}
	return g.Client.AddLabels(ctx, pr.Number, g.AutoMergeLabel)
}

// Close closes the pull request of the current branch
func (g *GitHub) Close(ctx context.Context) error {
	pr, err := g.currentPR(ctx)
	if err != nil {
		return err
	}
	return g.Client.ClosePR(ctx, pr.Number)
}
