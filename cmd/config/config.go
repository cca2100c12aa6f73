// Package config implements the config command for writing and updating the roller configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/webrtc/autoroller/cmd"
	rollcmd "github.com/webrtc/autoroller/cmd/roll"
	"github.com/webrtc/autoroller/internal/commands"
	"github.com/webrtc/autoroller/internal/config"
)

// options holds the values given on the command line; empty fields keep the existing value
type options struct {
	baseBranch     string
	reviewers      []string
	reviewBackend  string
	pinUpdater     string
	githubOrg      string
	githubRepo     string
	autoMergeLabel string
}

// NewConfigCmd creates and returns the config command
func NewConfigCmd(globalConfigFile, globalCheckout *string, loadConfig func(string) (*cmd.Config, error), saveConfig func(string, *cmd.Config) error) *cobra.Command {
	var opts options

	cobraCmd := &cobra.Command{
		Use:   "config",
		Short: "Write the roller configuration file",
		Long: `Config writes the effective roller configuration to the file given by --config,
relative to the Chromium checkout. Values already in the file are kept unless
overridden by a flag; missing values get the built-in defaults.

For the github review backend, the organization and repository are detected from
the origin remote of the checkout when not given.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			checkout, err := rollcmd.ResolveCheckout(*globalCheckout)
			if err != nil {
				return err
			}
			return runConfig(cobraCmd.Context(), commands.ExecRunner{}, checkout, rollcmd.ConfigPath(checkout, *globalConfigFile),
				opts, loadConfig, saveConfig, cobraCmd.OutOrStdout())
		},
	}
	addConfigFlags(cobraCmd, &opts)

	return cobraCmd
}

// addConfigFlags adds all flags to the config command
func addConfigFlags(cobraCmd *cobra.Command, opts *options) {
	cobraCmd.Flags().StringVar(&opts.baseBranch, "base-branch", "", "Branch the roll is based on and submitted against")
	cobraCmd.Flags().StringSliceVar(&opts.reviewers, "reviewers", nil, "Reviewers listed on the TBR= line")
	cobraCmd.Flags().StringVar(&opts.reviewBackend, "review-backend", "", "Review backend (gitcl, github)")
	cobraCmd.Flags().StringVar(&opts.pinUpdater, "pin-updater", "", "Pin updater (roll-dep, inline)")
	cobraCmd.Flags().StringVar(&opts.githubOrg, "github-org", "", "GitHub organization (auto-detected from origin if available)")
	cobraCmd.Flags().StringVar(&opts.githubRepo, "github-repo", "", "GitHub repository name (auto-detected from origin if available)")
	cobraCmd.Flags().StringVar(&opts.autoMergeLabel, "auto-merge-label", "", "Label that queues a GitHub pull request for merge")
}

func runConfig(ctx context.Context, runner commands.Runner, checkout, configFile string, opts options, loadConfig func(string) (*cmd.Config, error), saveConfig func(string, *cmd.Config) error, out io.Writer) error {
	cfg, isUpdate, err := loadOrCreateConfig(configFile, loadConfig)
	if err != nil {
		return err
	}
	updateConfigWithProvidedValues(cfg, opts)

	if cfg.ReviewBackend == cmd.ReviewBackendGitHub && (cfg.GitHub.Org == "" || cfg.GitHub.Repo == "") {
		if org, repo, err := detectGitHubRemote(ctx, runner, checkout); err == nil {
			if cfg.GitHub.Org == "" {
				cfg.GitHub.Org = org
				slog.Info("Auto-detected organization", "org", org)
			}
			if cfg.GitHub.Repo == "" {
				cfg.GitHub.Repo = repo
				slog.Info("Auto-detected repository", "repo", repo)
			}
		} else {
			slog.Debug("Could not detect GitHub repository", "error", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := saveConfig(configFile, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	displayConfigSuccess(out, configFile, cfg, isUpdate)
	return nil
}

// displayConfigSuccess shows the configuration success message
func displayConfigSuccess(out io.Writer, configFile string, cfg *cmd.Config, isUpdate bool) {
	action := "initialized"
	if isUpdate {
		action = "updated"
	}
	fmt.Fprintf(out, "Successfully %s %s with:\n", action, configFile)
	fmt.Fprintf(out, "  Base Branch: %s\n", cfg.BaseBranch)
	fmt.Fprintf(out, "  Roll Branch: %s\n", cfg.RollBranch)
	fmt.Fprintf(out, "  Review Backend: %s\n", cfg.ReviewBackend)
	if cfg.GitHub != nil && cfg.GitHub.Org != "" {
		fmt.Fprintf(out, "  GitHub Repository: %s/%s\n", cfg.GitHub.Org, cfg.GitHub.Repo)
	}
	fmt.Fprintf(out, "  Pin Updater: %s\n", cfg.PinUpdater)
	for _, dep := range cfg.Dependencies {
		fmt.Fprintf(out, "  Dependency: %s (%s)\n", dep.Name, dep.Path)
	}
}

// loadOrCreateConfig loads the existing config, or starts from the defaults when there is none.
// The existing file is not validated: the flags may be what repairs it.
func loadOrCreateConfig(configFile string, loadConfig func(string) (*cmd.Config, error)) (*cmd.Config, bool, error) {
	cfg, err := loadConfig(configFile)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), false, nil
	}
	return nil, false, fmt.Errorf("failed to load existing configuration: %w", err)
}

// updateConfigWithProvidedValues updates config with any non-empty provided values
func updateConfigWithProvidedValues(cfg *cmd.Config, opts options) {
	if opts.baseBranch != "" {
		cfg.BaseBranch = opts.baseBranch
	}
	if opts.reviewers != nil {
		cfg.Reviewers = opts.reviewers
	}
	if opts.reviewBackend != "" {
		cfg.ReviewBackend = cmd.ParseReviewBackend(opts.reviewBackend)
	}
	if opts.pinUpdater != "" {
		cfg.PinUpdater = cmd.ParsePinUpdater(opts.pinUpdater)
	}

	if cfg.ReviewBackend == cmd.ReviewBackendGitHub && cfg.GitHub == nil {
		cfg.GitHub = &cmd.GitHubConfig{}
	}
	if cfg.GitHub == nil {
		return
	}
	if opts.githubOrg != "" {
		cfg.GitHub.Org = opts.githubOrg
	}
	if opts.githubRepo != "" {
		cfg.GitHub.Repo = opts.githubRepo
	}
	if opts.autoMergeLabel != "" {
		cfg.GitHub.AutoMergeLabel = opts.autoMergeLabel
	}
}

// detectGitHubRemote extracts org and repo from the origin remote of the checkout
func detectGitHubRemote(ctx context.Context, runner commands.Runner, checkout string) (string, string, error) {
	output, err := runner.Run(ctx, commands.Command{Args: []string{"git", "remote", "get-url", "origin"}, Dir: checkout})
	if err != nil {
		return "", "", err
	}
	return parseRemoteURL(strings.TrimSpace(output))
}

var (
	sshRemote   = regexp.MustCompile(`git@github\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
	httpsRemote = regexp.MustCompile(`https://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// parseRemoteURL extracts org and repo from the SSH and HTTPS GitHub URL formats
func parseRemoteURL(remoteURL string) (string, string, error) {
	if matches := sshRemote.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}
	if matches := httpsRemote.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}
	return "", "", fmt.Errorf("unable to parse GitHub remote URL: %s", remoteURL)
}
