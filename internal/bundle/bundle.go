// Package bundle turns a multi-file generated project into a single
// self-contained HTML document for sandboxed iframe preview. References are
// resolved with a real HTML parse-and-serialize pass rather than pattern
// matching, so documents with nested quotes or multiline attributes survive
// intact.
package bundle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/siteulation/backend/internal/models"
)

// ErrEmptyProject is returned when Bundle is called with no files.
var ErrEmptyProject = errors.New("project has no files")

// Bundle inlines every resolvable local stylesheet and script reference of
// the project's entry document and returns the result as one HTML string.
// Missing assets and external URLs are left untouched. Output is
// deterministic: the same file set always yields the same string.
func Bundle(files []models.ProjectFile) (string, error) {
	if len(files) == 0 {
		return "", ErrEmptyProject
	}

	entry := entryDocument(files)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(entry.Content))
	if err != nil {
		return "", fmt.Errorf("parse entry document %q: %w", entry.Name, err)
	}

	doc.Find("link").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(s.AttrOr("rel", ""), "stylesheet") {
			return
		}
		href, ok := s.Attr("href")
		if !ok || isExternal(href) {
			return
		}
		content, found := lookup(files, href)
		if !found {
			return
		}
		s.ReplaceWithHtml("<style>\n" + content + "\n</style>")
	})

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if isExternal(src) {
			return
		}
		content, found := lookup(files, src)
		if !found {
			return
		}
		s.ReplaceWithHtml("<script>\n" + content + "\n</script>")
	})

	return doc.Html()
}

// entryDocument selects the project's root page: the file named index.html
// (case-insensitive), or the first file when none exists.
func entryDocument(files []models.ProjectFile) models.ProjectFile {
	for _, f := range files {
		if strings.EqualFold(f.Name, "index.html") {
			return f
		}
	}
	return files[0]
}

// lookup finds a project file by name, case-insensitive, first match wins.
func lookup(files []models.ProjectFile, name string) (string, bool) {
	for _, f := range files {
		if strings.EqualFold(f.Name, name) {
			return f.Content, true
		}
	}
	return "", false
}

// isExternal reports whether ref points outside the project and must stay an
// external reference in the bundled output.
func isExternal(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(ref, "//")
}
