package review

import (
	"context"

	"github.com/webrtc/autoroller/internal/commands"
	"github.com/webrtc/autoroller/internal/roll"
)

// GitCL drives depot_tools' `git cl` in the checkout root
type GitCL struct {
	Runner commands.Runner
	Dir    string
}

func (g *GitCL) run(ctx context.Context, env map[string]string, args ...string) (string, error) {
	return g.Runner.Run(ctx, commands.Command{Args: append([]string{"git", "cl"}, args...), Dir: g.Dir, Env: env})
}

// Upload uploads the current branch without opening an editor
func (g *GitCL) Upload(ctx context.Context, message string) error {
	_, err := g.run(ctx, map[string]string{"EDITOR": "true"}, "upload", "-m", message)
	return err
}

// Issue returns the review associated with the current branch
func (g *GitCL) Issue(ctx context.Context) (*roll.ReviewInfo, error) {
	out, err := g.run(ctx, nil, "issue")
	if err != nil {
		return nil, err
	}
	return ParseIssueReply(out)
}

// SetAutoMerge sends the change to the commit queue
func (g *GitCL) SetAutoMerge(ctx context.Context) error {
	_, err := g.run(ctx, nil, "set_commit")
	return err
}

// Close closes the review associated with the current branch. The branch may have no review,
// so a failure is not logged as an error.
func (g *GitCL) Close(ctx context.Context) error {
	_, err := g.Runner.Run(ctx, commands.Command{Args: []string{"git", "cl", "set_close"}, Dir: g.Dir, MayFail: true})
	return err
}
