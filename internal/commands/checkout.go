package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// IsCheckout reports whether dir holds the pin file and the marker directory
func IsCheckout(dir, pinFile, markerDir string) bool {
	info, err := os.Stat(filepath.Join(dir, pinFile))
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	info, err = os.Stat(filepath.Join(dir, markerDir))
	return err == nil && info.IsDir()
}

// BranchStatusReader is the part of Git the workspace checks need
type BranchStatusReader interface {
	CurrentBranch(ctx context.Context) (string, error)
	Status(ctx context.Context) ([]string, error)
}

// WorkspaceIssue describes why the workspace is not ready for a roll
type WorkspaceIssue struct {
	Reason string
}

func (w *WorkspaceIssue) Error() string {
	return w.Reason
}

// ValidateWorkspace ensures the checkout is on baseBranch with a clean working tree
func ValidateWorkspace(ctx context.Context, git BranchStatusReader, baseBranch string) error {
	branch, err := git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if branch != baseBranch {
		return &WorkspaceIssue{Reason: fmt.Sprintf("please checkout the %s branch (currently on %s)", baseBranch, branch)}
	}

	clean, err := IsTreeClean(ctx, git)
	if err != nil {
		return err
	}
	if !clean {
		return &WorkspaceIssue{Reason: "please make sure you don't have any modified files"}
	}

	return nil
}

// IsTreeClean reports whether the working tree has no modified or untracked files
func IsTreeClean(ctx context.Context, git BranchStatusReader) (bool, error) {
	lines, err := git.Status(ctx)
	if err != nil {
		return false, err
	}
	if len(lines) == 0 {
		return true, nil
	}
	slog.Debug("Dirty/unversioned files", "files", lines)
	return false, nil
}
