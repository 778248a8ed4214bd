package export

import (
	"path/filepath"

	"github.com/takak2166/onenote2markdown/internal/localize"
	"github.com/takak2166/onenote2markdown/internal/models"
	"github.com/takak2166/onenote2markdown/internal/sanitize"
)

// NotebookDir is <root>/<sanitized notebook name>.
func NotebookDir(root string, nb models.Notebook) string {
	return filepath.Join(root, sanitize.Name(nb.DisplayName))
}

// SectionDir is <notebook dir>/<sanitized section name>.
func SectionDir(notebookDir string, sec models.Section) string {
	return filepath.Join(notebookDir, sanitize.Name(sec.DisplayName))
}

// PageFile is the Markdown target for a page. Pages whose titles sanitize
// to nothing fall back to their ID so the path stays stable across runs.
func PageFile(sectionDir string, page models.Page) string {
	title := sanitize.Name(page.Title)
	if title == "" {
		title = "Untitled_" + sanitize.Name(page.ID)
	}
	return filepath.Join(sectionDir, title+".md")
}

// AssetsDir is the shared resource directory of a section.
func AssetsDir(sectionDir string) string {
	return filepath.Join(sectionDir, localize.AssetsDirName)
}
