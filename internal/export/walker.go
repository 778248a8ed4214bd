package export

import (
	"context"
	"fmt"
	"os"

	"github.com/takak2166/onenote2markdown/internal/graph"
	"github.com/takak2166/onenote2markdown/internal/logger"
)

// Summary is the per-run outcome report. FailedPages holds page titles for
// manual inspection; a rerun retries them automatically since they were
// never marked complete.
type Summary struct {
	Exported    int
	Skipped     int
	Failed      int
	FailedPages []string
}

// Run walks notebooks, sections and pages in listing order and exports
// each page. One bad page or one failed section/notebook listing is logged
// and skipped; auth failures and filesystem errors end the run. The partial
// summary is returned alongside any fatal error.
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	if err := os.MkdirAll(e.root, 0755); err != nil {
		return summary, fmt.Errorf("failed to create export root: %w", err)
	}

	notebooks, err := e.api.ListNotebooks(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list notebooks: %w", err)
	}
	logger.Info("Found notebooks", map[string]interface{}{
		"count": len(notebooks),
	})

	for _, nb := range notebooks {
		logger.Info("Processing notebook", map[string]interface{}{
			"notebook": nb.DisplayName,
		})
		nbDir := NotebookDir(e.root, nb)
		if err := os.MkdirAll(nbDir, 0755); err != nil {
			return summary, fmt.Errorf("failed to create notebook directory: %w", err)
		}

		sections, err := e.api.ListSections(ctx, nb.ID)
		if err != nil {
			if graph.IsAuthError(err) {
				return summary, err
			}
			logger.Error("Failed to list sections, skipping notebook", err, map[string]interface{}{
				"notebook": nb.DisplayName,
			})
			continue
		}

		for _, sec := range sections {
			logger.Info("Processing section", map[string]interface{}{
				"notebook": nb.DisplayName,
				"section":  sec.DisplayName,
			})
			secDir := SectionDir(nbDir, sec)
			if err := os.MkdirAll(secDir, 0755); err != nil {
				return summary, fmt.Errorf("failed to create section directory: %w", err)
			}

			pages, err := e.api.ListPages(ctx, sec.ID)
			if err != nil {
				if graph.IsAuthError(err) {
					return summary, err
				}
				logger.Error("Failed to list pages, skipping section", err, map[string]interface{}{
					"section": sec.DisplayName,
				})
				continue
			}

			for _, page := range pages {
				// Safe interruption point: no page is mid-write here.
				if err := ctx.Err(); err != nil {
					return summary, err
				}

				outcome, err := e.ExportPage(ctx, secDir, page)
				if err != nil {
					if graph.IsAuthError(err) {
						return summary, err
					}
					summary.Failed++
					summary.FailedPages = append(summary.FailedPages, page.Title)
					logger.Error("Failed to export page", err, map[string]interface{}{
						"page": page.Title,
					})
					continue
				}

				switch outcome {
				case Exported:
					summary.Exported++
					logger.Info("Exported page", map[string]interface{}{
						"page": page.Title,
					})
				case Skipped:
					summary.Skipped++
				}
			}
		}
	}

	return summary, nil
}
