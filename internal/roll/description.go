package roll

import (
	"fmt"
	"strings"
)

// ChangeLogURL returns the upstream log URL between two commits
func ChangeLogURL(repoURL string, from, to CommitInfo) string {
	return fmt.Sprintf("%s/+log/%s..%s", repoURL, from.Short(), to.Short())
}

// Description generates the commit and review message for the changed dependencies.
// Unchanged dependencies are omitted. Every section but the one of the last configured
// dependency is followed by a blank line. The TBR= line is always last.
func Description(versions []Versions, reviewers []string) string {
	var titles []string
	var sections strings.Builder
	for i, v := range versions {
		if !v.Changed() {
			continue
		}
		title := fmt.Sprintf("%s %d:%d", v.Dependency.Name, v.Current.Sequence, v.Latest.Sequence)
		titles = append(titles, title)
		fmt.Fprintf(&sections, "%s\nChanges: %s\n", title, ChangeLogURL(v.Current.RepoURL, v.Current, v.Latest))
		if i < len(versions)-1 {
			sections.WriteString("\n")
		}
	}

	var b strings.Builder
	b.WriteString("Roll " + strings.Join(titles, ", ") + "\n\n")
	b.WriteString(sections.String())
	b.WriteString("\nTBR=" + strings.Join(reviewers, ","))
	return b.String()
}
