package deps

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/webrtc/autoroller/internal/commands"
)

// Pinner rewrites one dependency's pinned revision in place
type Pinner interface {
	SetPin(ctx context.Context, spec DependencySpec, revision string) error
}

// RollDep updates pins with depot_tools' roll-dep
type RollDep struct {
	Runner commands.Runner
	Dir    string // checkout root
	Prefix string // stripped from the deps key to get the path roll-dep expects
}

// SetPin runs `roll-dep <path> <revision>` in the checkout root
func (r *RollDep) SetPin(ctx context.Context, spec DependencySpec, revision string) error {
	path := strings.TrimPrefix(spec.Path, r.Prefix)
	_, err := r.Runner.Run(ctx, commands.Command{Args: []string{"roll-dep", path, revision}, Dir: r.Dir})
	return err
}

// Inline updates pins by replacing the old revision in the pin file text
type Inline struct {
	PinFile string
}

// SetPin replaces the single occurrence of the currently pinned revision
func (i *Inline) SetPin(_ context.Context, spec DependencySpec, revision string) error {
	if spec.Revision == revision {
		return nil
	}

	data, err := os.ReadFile(i.PinFile) //nolint:gosec // Path is inside the checkout
	if err != nil {
		return fmt.Errorf("failed to read pin file: %w", err)
	}
	content := string(data)

	if n := strings.Count(content, spec.Revision); n != 1 {
		return fmt.Errorf("expected exactly one occurrence of %s for %s in %s, found %d", spec.Revision, spec.Path, i.PinFile, n)
	}
	content = strings.Replace(content, spec.Revision, revision, 1)

	info, err := os.Stat(i.PinFile)
	if err != nil {
		return fmt.Errorf("failed to stat pin file: %w", err)
	}
	if err := os.WriteFile(i.PinFile, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write pin file: %w", err)
	}
	return nil
}
