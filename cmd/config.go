// Package cmd defines the configuration structures shared by the roller commands.
package cmd

// ReviewBackend selects the tool used to upload and track the roll change
type ReviewBackend string

const (
	// ReviewBackendGitCL uploads through depot_tools' `git cl`
	ReviewBackendGitCL ReviewBackend = "gitcl"
	// ReviewBackendGitHub pushes the roll branch and opens a pull request
	ReviewBackendGitHub ReviewBackend = "github"
)

// ParseReviewBackend converts a string to ReviewBackend
func ParseReviewBackend(s string) ReviewBackend {
	switch s {
	case "github":
		return ReviewBackendGitHub
	default:
		return ReviewBackendGitCL
	}
}

// PinUpdater selects how a dependency pin is rewritten
type PinUpdater string

const (
	// PinUpdaterRollDep shells out to depot_tools' roll-dep
	PinUpdaterRollDep PinUpdater = "roll-dep"
	// PinUpdaterInline replaces the pinned hash in the pin file directly
	PinUpdaterInline PinUpdater = "inline"
)

// ParsePinUpdater converts a string to PinUpdater
func ParsePinUpdater(s string) PinUpdater {
	switch s {
	case "inline":
		return PinUpdaterInline
	default:
		return PinUpdaterRollDep
	}
}

// Config represents the structure of autoroll.yaml
type Config struct {
	BaseBranch        string        `yaml:"base_branch"`
	RollBranch        string        `yaml:"roll_branch"`
	PinFile           string        `yaml:"pin_file"`
	PinPrefix         string        `yaml:"pin_prefix"`
	CheckoutMarkerDir string        `yaml:"checkout_marker_dir"`
	Reviewers         []string      `yaml:"reviewers,omitempty"`
	ReviewBackend     ReviewBackend `yaml:"review_backend"`
	PinUpdater        PinUpdater    `yaml:"pin_updater"`
	GitHub            *GitHubConfig `yaml:"github,omitempty"`
	Dependencies      []Dependency  `yaml:"dependencies"`
}

// GitHubConfig holds the settings of the GitHub review backend
type GitHubConfig struct {
	Org            string `yaml:"org"`
	Repo           string `yaml:"repo"`
	AutoMergeLabel string `yaml:"auto_merge_label,omitempty"`
}

// Dependency is one vendored upstream repository tracked in the pin file
type Dependency struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`             // relative to the checkout root, without pin_prefix
	Readme string `yaml:"readme,omitempty"` // file carrying a "Revision: N" marker
}
