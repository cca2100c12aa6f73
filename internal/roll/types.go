// Package roll advances pinned upstream dependencies and submits the result for review.
package roll

import (
	"context"

	"github.com/webrtc/autoroller/cmd"
)

// CommitInfo identifies one upstream commit of a dependency
type CommitInfo struct {
	Sequence int    // upstream commit position
	Commit   string // full git hash
	RepoURL  string
}

// Short returns the abbreviated 7-character commit hash
func (c CommitInfo) Short() string {
	if len(c.Commit) <= 7 {
		return c.Commit
	}
	return c.Commit[:7]
}

// Versions is the before/after pair resolved for one dependency
type Versions struct {
	Dependency cmd.Dependency
	Current    CommitInfo
	Latest     CommitInfo
}

// Changed reports whether the dependency moves to a different commit
func (v Versions) Changed() bool {
	return v.Current.Commit != v.Latest.Commit
}

// ReviewInfo identifies the uploaded change on the review host
type ReviewInfo struct {
	Issue int
	URL   string
	Host  string
}

// Git is the version-control surface the roller drives in the checkout root
type Git interface {
	CurrentBranch(ctx context.Context) (string, error)
	Status(ctx context.Context) ([]string, error)
	Branches(ctx context.Context) (active string, branches []string, err error)
	Pull(ctx context.Context) error
	CreateBranch(ctx context.Context, name string) error
	DeleteBranch(ctx context.Context, name string) error
	DeleteBranchIfExists(ctx context.Context, name string) error
	Checkout(ctx context.Context, ref string) error
	Restore(ctx context.Context, paths ...string) error
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
}

// Upstream is the git surface of one dependency's own checkout
type Upstream interface {
	Fetch(ctx context.Context, remote string) error
	Log(ctx context.Context, revision string) (string, error)
}

// Reviewer uploads the roll change and manages it on the review host
type Reviewer interface {
	Upload(ctx context.Context, message string) error
	Issue(ctx context.Context) (*ReviewInfo, error)
	SetAutoMerge(ctx context.Context) error
	Close(ctx context.Context) error
}
