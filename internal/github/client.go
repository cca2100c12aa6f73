// Package github wraps the GitHub API calls used by the pull request review backend.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub API client for a single repository
type Client struct {
	client     *github.Client
	httpClient *http.Client
	org        string
	repo       string
}

// PR represents a pull request from GitHub
type PR struct {
	Number int
	Title  string
	URL    string
	Head   string
	State  string
}

// NewClient creates a new GitHub client with token authentication
func NewClient(ctx context.Context, token string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{client: github.NewClient(tc), httpClient: tc}
}

// WithRepository returns a copy of the client scoped to org/repo
func (c *Client) WithRepository(org, repo string) *Client {
	return &Client{client: c.client, httpClient: c.httpClient, org: org, repo: repo}
}

// WithBaseURL returns a copy of the client talking to a different API endpoint
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}

	client := github.NewClient(c.httpClient)
	client.BaseURL = u
	return &Client{client: client, httpClient: c.httpClient, org: c.org, repo: c.repo}, nil
}

func toPR(pr *github.PullRequest) *PR {
	return &PR{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		Head:   pr.GetHead().GetRef(),
		State:  pr.GetState(),
	}
}

// FindOpenPR returns the open pull request whose head is branch, or nil if there is none
func (c *Client) FindOpenPR(ctx context.Context, branch string) (*PR, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		Head:        c.org + ":" + branch,
		ListOptions: github.ListOptions{PerPage: 10},
	}

	slog.Debug("GitHub API: Listing pull requests", "org", c.org, "repo", c.repo, "head", opts.Head)
	prs, _, err := c.client.PullRequests.List(ctx, c.org, c.repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s: %w", branch, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return toPR(prs[0]), nil
}

// CreatePR creates a new pull request
func (c *Client) CreatePR(ctx context.Context, title, body, head, base string) (*PR, error) {
	newPR := &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &head,
		Base:  &base,
	}

	slog.Debug("GitHub API: Creating PR", "org", c.org, "repo", c.repo, "head", head, "base", base)
	pr, _, err := c.client.PullRequests.Create(ctx, c.org, c.repo, newPR)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request from %s to %s: %w", head, base, err)
	}
	return toPR(pr), nil
}

// UpdatePR replaces the title and body of a pull request
func (c *Client) UpdatePR(ctx context.Context, number int, title, body string) error {
	slog.Debug("GitHub API: Updating PR", "org", c.org, "repo", c.repo, "pr", number)
	_, _, err := c.client.PullRequests.Edit(ctx, c.org, c.repo, number, &github.PullRequest{
		Title: &title,
		Body:  &body,
	})
	if err != nil {
		return fmt.Errorf("failed to update PR #%d: %w", number, err)
	}
	return nil
}

// AddLabels adds labels to a pull request
func (c *Client) AddLabels(ctx context.Context, number int, labels ...string) error {
	slog.Debug("GitHub API: Adding labels", "org", c.org, "repo", c.repo, "pr", number, "labels", labels)
	if _, _, err := c.client.Issues.AddLabelsToIssue(ctx, c.org, c.repo, number, labels); err != nil {
		return fmt.Errorf("failed to label PR #%d: %w", number, err)
	}
	return nil
}

// ClosePR closes a pull request without merging it
func (c *Client) ClosePR(ctx context.Context, number int) error {
	state := "closed"
	slog.Debug("GitHub API: Closing PR", "org", c.org, "repo", c.repo, "pr", number)
	if _, _, err := c.client.PullRequests.Edit(ctx, c.org, c.repo, number, &github.PullRequest{State: &state}); err != nil {
		return fmt.Errorf("failed to close PR #%d: %w", number, err)
	}
	return nil
}
