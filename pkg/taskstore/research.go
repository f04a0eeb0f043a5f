package taskstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify reduces a query to a filename-safe slug, capped at 50 characters.
func Slugify(s string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	if slug == "" {
		slug = "research"
	}
	return slug
}

// ResearchFileName derives the deterministic document name for a query on a
// date. Identical (query, date) pairs always map to the same file.
func ResearchFileName(query string, date time.Time) string {
	return fmt.Sprintf("%s_%s.md", date.Format("2006-01-02"), Slugify(query))
}

// SaveResearchDoc writes a research result as a Markdown document under
// .taskmaster/docs/research/ and returns its path. Re-running with identical
// inputs reproduces the file byte for byte.
func (s *Store) SaveResearchDoc(query, result string, date time.Time) (string, error) {
	dir := filepath.Join(s.projectRoot, DocsDir, "research")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create research dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: Research Session\nquery: %q\ndate: %s\n", query, date.Format("2006-01-02"))
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", query)
	b.WriteString(result)
	if !strings.HasSuffix(result, "\n") {
		b.WriteString("\n")
	}

	path := filepath.Join(dir, ResearchFileName(query, date))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write research doc: %w", err)
	}
	return path, nil
}

// TimestampedBlock wraps text in the delimited form appended to task and
// subtask details by the update and research savers.
func TimestampedBlock(text string, at time.Time) string {
	stamp := at.UTC().Format(time.RFC3339)
	return fmt.Sprintf("\n<info added on %s>\n%s\n</info added on %s>", stamp, strings.TrimSpace(text), stamp)
}
