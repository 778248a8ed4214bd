package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/takak2166/onenote2markdown/internal/graph"
	"github.com/takak2166/onenote2markdown/internal/localize"
	"github.com/takak2166/onenote2markdown/internal/logger"
	"github.com/takak2166/onenote2markdown/internal/markdown"
	"github.com/takak2166/onenote2markdown/internal/models"
)

// Outcome reports what ExportPage did.
type Outcome int

const (
	// Skipped means the target was already complete; no remote call was made.
	Skipped Outcome = iota
	// Exported means the page was fetched, localized, converted and written.
	Exported
)

// Exporter writes pages of the OneNote hierarchy below root.
type Exporter struct {
	api  graph.API
	root string
}

// New creates an Exporter that talks to api and writes under root.
func New(api graph.API, root string) *Exporter {
	return &Exporter{api: api, root: root}
}

// IsComplete reports whether a prior run already finished this target:
// the file exists with non-zero size. Stat-only, so rerunning over an
// exported tree touches no remote endpoint for completed pages.
func IsComplete(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// ExportPage exports one page into sectionDir: resume check, content fetch,
// resource localization, Markdown conversion, atomic write. Resource-level
// failures degrade the page (the reference stays remote); any other failure
// aborts only this page.
func (e *Exporter) ExportPage(ctx context.Context, sectionDir string, page models.Page) (Outcome, error) {
	target := PageFile(sectionDir, page)
	if IsComplete(target) {
		logger.Debug("Already complete, skipping", map[string]interface{}{
			"page": page.Title,
		})
		return Skipped, nil
	}

	pageHTML, err := e.api.GetPageContent(ctx, page.ID)
	if err != nil {
		return Skipped, fmt.Errorf("failed to fetch page content: %w", err)
	}

	localized, err := localize.Rewrite(ctx, pageHTML, page.ID, AssetsDir(sectionDir), e.api)
	if err != nil {
		return Skipped, fmt.Errorf("failed to localize resources: %w", err)
	}
	if len(localized.Failed) > 0 {
		logger.Warn("Page exported with unresolved resources", nil, map[string]interface{}{
			"page":       page.Title,
			"unresolved": len(localized.Failed),
		})
	}

	md, err := markdown.Convert(localized.HTML)
	if err != nil {
		return Skipped, fmt.Errorf("failed to convert page: %w", err)
	}

	if err := writeFileAtomic(target, []byte(md)); err != nil {
		return Skipped, fmt.Errorf("failed to write page: %w", err)
	}
	return Exported, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so an interrupted run never leaves a partial file under
// the final name.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to flush temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
