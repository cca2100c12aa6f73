package deps

import (
	"fmt"
	"os"
	"regexp"
)

var readmeRevisionRe = regexp.MustCompile(`(?m)^Revision: [0-9]*.*$`)

// UpdateReadmeRevision rewrites the "Revision: N" marker of a README file
func UpdateReadmeRevision(path string, revision int) error {
	data, err := os.ReadFile(path) //nolint:gosec // Path is inside the checkout
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	updated := ReplaceReadmeRevision(string(data), revision)
	if updated == string(data) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReplaceReadmeRevision returns content with every "Revision: N" line set to revision
func ReplaceReadmeRevision(content string, revision int) string {
	return readmeRevisionRe.ReplaceAllLiteralString(content, fmt.Sprintf("Revision: %d", revision))
}
