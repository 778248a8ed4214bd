package graph

import (
	"context"

	"github.com/takak2166/onenote2markdown/internal/models"
)

//go:generate mockgen -source=graph.go -destination=mock_graph/mock_graph.go -package=mock_graph
type (
	// API is the surface of the Microsoft Graph OneNote endpoints consumed
	// by the exporter. List calls follow @odata.nextLink pagination
	// exhaustively before returning.
	API interface {
		ListNotebooks(ctx context.Context) ([]models.Notebook, error)
		ListSections(ctx context.Context, notebookID string) ([]models.Section, error)
		ListPages(ctx context.Context, sectionID string) ([]models.Page, error)
		GetPageContent(ctx context.Context, pageID string) (string, error)
		GetResource(ctx context.Context, url string) (data []byte, contentType string, err error)
	}

	// TokenProvider supplies bearer tokens for Graph requests. Refresh is
	// called once after a 401 before the request is retried.
	TokenProvider interface {
		AccessToken(ctx context.Context) (string, error)
		Refresh(ctx context.Context) (string, error)
	}
)
