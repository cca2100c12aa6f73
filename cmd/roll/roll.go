// Package roll implements the root command that rolls WebRTC and Libjingle into a Chromium checkout.
package roll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/webrtc/autoroller/cmd"
	"github.com/webrtc/autoroller/internal/commands"
	"github.com/webrtc/autoroller/internal/deps"
	"github.com/webrtc/autoroller/internal/github"
	"github.com/webrtc/autoroller/internal/review"
	roller "github.com/webrtc/autoroller/internal/roll"
)

// NewRollCmd creates and returns the roll command
func NewRollCmd(globalConfigFile, globalCheckout *string, loadConfig func(string) (*cmd.Config, error)) *cobra.Command {
	var opts roller.Options
	var abort bool

	rollCmd := &cobra.Command{
		Use:   "autoroller",
		Short: "Roll the WebRTC and Libjingle DEPS pins of a Chromium checkout",
		Long: `autoroller updates the pinned WebRTC and Libjingle revisions in a Chromium
checkout to their latest upstream commits, commits the change on a dedicated
branch, uploads it for review and sends it to the commit queue.

With --abort it closes the review of a pending roll and deletes its branch.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runRoll(cobraCmd.Context(), *globalCheckout, *globalConfigFile, loadConfig, opts, abort, cobraCmd.OutOrStdout())
		},
	}

	rollCmd.Flags().BoolVar(&abort, "abort", false, "Abort a pending roll: close its review and delete the roll branch")
	rollCmd.Flags().BoolVar(&opts.NoCommit, "no-commit", false, "Upload the roll but don't send it to the commit queue")
	rollCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Upload the roll but leave the branch for inspection, nothing is queued")
	rollCmd.Flags().BoolVar(&opts.IgnoreChecks, "ignore-checks", false, "Skip the base branch and clean tree checks, and don't pull")

	return rollCmd
}

func runRoll(ctx context.Context, checkoutFlag, configFile string, loadConfig func(string) (*cmd.Config, error), opts roller.Options, abort bool, out io.Writer) error {
	if err := roller.CheckPlatform(runtime.GOOS); err != nil {
		return err
	}

	config, checkout, err := LoadCheckoutConfig(checkoutFlag, configFile, loadConfig)
	if err != nil {
		return err
	}

	r, err := NewRoller(ctx, config, checkout, commands.ExecRunner{}, opts, out)
	if err != nil {
		return err
	}

	if abort {
		found, err := r.Abort(ctx)
		if err != nil {
			return err
		}
		if !found {
			slog.Info("No pending roll to abort", "branch", config.RollBranch)
		}
		return nil
	}

	result, err := r.PrepareRoll(ctx)
	if err != nil {
		return err
	}
	slog.Info("Roll finished", "outcome", result.Outcome)
	return nil
}

// ResolveCheckout returns the absolute checkout directory, defaulting to the working directory
func ResolveCheckout(checkoutFlag string) (string, error) {
	dir := checkoutFlag
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", &roller.CheckoutError{Path: ".", Reason: err.Error()}
		}
		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &roller.CheckoutError{Path: dir, Reason: err.Error()}
	}
	return abs, nil
}

// LoadCheckoutConfig resolves the checkout, loads its configuration and verifies that the
// directory is a checkout of the downstream project. A relative config path is taken relative
// to the checkout.
func LoadCheckoutConfig(checkoutFlag, configFile string, loadConfig func(string) (*cmd.Config, error)) (*cmd.Config, string, error) {
	checkout, err := ResolveCheckout(checkoutFlag)
	if err != nil {
		return nil, "", err
	}

	reason := "please specify a Chromium checkout with --chromium-checkout or run from one"
	if checkoutFlag != "" {
		reason = "not a Chromium checkout"
	}
	// The config file lives in the checkout, so only a directory can hold one.
	if info, err := os.Stat(checkout); err != nil || !info.IsDir() {
		return nil, "", &roller.CheckoutError{Path: checkout, Reason: reason}
	}

	config, err := loadConfig(ConfigPath(checkout, configFile))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	if !commands.IsCheckout(checkout, config.PinFile, config.CheckoutMarkerDir) {
		return nil, "", &roller.CheckoutError{Path: checkout, Reason: reason}
	}
	slog.Debug("Using checkout", "path", checkout)
	return config, checkout, nil
}

// ConfigPath joins a relative config file name to the checkout directory
func ConfigPath(checkout, configFile string) string {
	if filepath.IsAbs(configFile) {
		return configFile
	}
	return filepath.Join(checkout, configFile)
}

// NewRoller wires the git, pin updater and review collaborators for a checkout
func NewRoller(ctx context.Context, config *cmd.Config, checkout string, runner commands.Runner, opts roller.Options, out io.Writer) (*roller.Roller, error) {
	git := commands.NewGit(runner, checkout)

	var pinner deps.Pinner
	switch config.PinUpdater {
	case cmd.PinUpdaterInline:
		pinner = &deps.Inline{PinFile: filepath.Join(checkout, config.PinFile)}
	default:
		pinner = &deps.RollDep{Runner: runner, Dir: checkout, Prefix: config.PinPrefix}
	}

	reviewer, err := newReviewer(ctx, config, git, runner)
	if err != nil {
		return nil, err
	}

	return &roller.Roller{
		Config:   config,
		Checkout: checkout,
		Git:      git,
		Upstream: func(path string) roller.Upstream { return git.At(path) },
		Pinner:   pinner,
		Reviewer: reviewer,
		Options:  opts,
		Out:      out,
	}, nil
}

func newReviewer(ctx context.Context, config *cmd.Config, git *commands.Git, runner commands.Runner) (roller.Reviewer, error) {
	if config.ReviewBackend != cmd.ReviewBackendGitHub {
		return &review.GitCL{Runner: runner, Dir: git.Dir()}, nil
	}

	if config.GitHub == nil {
		return nil, fmt.Errorf("review_backend github requires a github section")
	}
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is required for the github review backend")
	}
	client := github.NewClient(ctx, token).WithRepository(config.GitHub.Org, config.GitHub.Repo)

	return &review.GitHub{
		Client:         client,
		Git:            git,
		Remote:         "origin",
		BaseBranch:     config.BaseBranch,
		AutoMergeLabel: config.GitHub.AutoMergeLabel,
	}, nil
}
