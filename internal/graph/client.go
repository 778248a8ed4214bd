package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/takak2166/onenote2markdown/internal/logger"
	"github.com/takak2166/onenote2markdown/internal/models"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const maxErrorBody = 512

// Config tunes the client's retry behavior.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// MaxRetries bounds attempts for a single request on 5xx and network
	// errors. Defaults to 5. Rate-limit waits do not consume attempts.
	MaxRetries int

	// RetryWait is used for a 429 response without a Retry-After hint.
	// Defaults to 10 seconds.
	RetryWait time.Duration
}

// Client issues authenticated GET requests against the Graph API. A single
// Client must be shared by all callers so that rate-limit pacing and waits
// are process-wide.
type Client struct {
	httpClient  *http.Client
	tokens      TokenProvider
	limiter     *rate.Limiter
	baseURL     string
	maxRetries  int
	retryWait   time.Duration
	backoffBase time.Duration
}

// NewClient creates a Graph client using tokens for authorization.
func NewClient(tokens TokenProvider, cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 5
	}
	retryWait := cfg.RetryWait
	if retryWait <= 0 {
		retryWait = 10 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		tokens:      tokens,
		limiter:     rate.NewLimiter(rate.Limit(4), 4),
		baseURL:     baseURL,
		maxRetries:  maxRetries,
		retryWait:   retryWait,
		backoffBase: time.Second,
	}
}

// ListNotebooks returns all notebooks for the signed-in user.
func (c *Client) ListNotebooks(ctx context.Context) ([]models.Notebook, error) {
	return listAll[models.Notebook](ctx, c, c.baseURL+"/me/onenote/notebooks")
}

// ListSections returns all sections of a notebook.
func (c *Client) ListSections(ctx context.Context, notebookID string) ([]models.Section, error) {
	url := fmt.Sprintf("%s/me/onenote/notebooks/%s/sections", c.baseURL, notebookID)
	return listAll[models.Section](ctx, c, url)
}

// ListPages returns all pages of a section. Small batches and an id,title
// projection keep Graph from timing out on large sections.
func (c *Client) ListPages(ctx context.Context, sectionID string) ([]models.Page, error) {
	url := fmt.Sprintf("%s/me/onenote/sections/%s/pages?$top=20&$select=id,title", c.baseURL, sectionID)
	return listAll[models.Page](ctx, c, url)
}

// GetPageContent fetches the rendered HTML of a page. includeInkML makes
// ink drawings show up as img tags in the HTML.
func (c *Client) GetPageContent(ctx context.Context, pageID string) (string, error) {
	url := fmt.Sprintf("%s/me/onenote/pages/%s/content?includeIDs=true&includeInkML=true", c.baseURL, pageID)
	body, _, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetResource downloads a binary resource (image, ink rendering or
// attachment) from its absolute Graph URL.
func (c *Client) GetResource(ctx context.Context, url string) ([]byte, string, error) {
	return c.get(ctx, url)
}

// listAll fetches url and follows @odata.nextLink until the listing is
// exhausted. Missing a continuation page would silently lose content.
func listAll[T any](ctx context.Context, c *Client, url string) ([]T, error) {
	var items []T
	for url != "" {
		body, _, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}

		var envelope struct {
			Value    []T    `json:"value"`
			NextLink string `json:"@odata.nextLink"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode list response: %w", err)
		}

		items = append(items, envelope.Value...)
		if envelope.NextLink != "" {
			logger.Debug("Following pagination link", map[string]interface{}{
				"fetched": len(items),
			})
		}
		url = envelope.NextLink
	}
	return items, nil
}

// get performs one authenticated GET with the full retry policy: unbounded
// waits on 429 (bounded per wait by the Retry-After hint or the configured
// fallback), capped exponential backoff on 5xx and network errors up to
// maxRetries, and a single token refresh on 401.
func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, "", &AuthError{Err: fmt.Errorf("failed to acquire access token: %w", err)}
	}

	attempts := 0
	refreshed := false

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			attempts++
			if attempts >= c.maxRetries {
				return nil, "", fmt.Errorf("request failed after %d attempts: %w", attempts, err)
			}
			logger.Warn("Network error, retrying", err, map[string]interface{}{
				"attempt": attempts,
				"url":     url,
			})
			if err := sleep(ctx, c.backoff(attempts)); err != nil {
				return nil, "", err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				attempts++
				if attempts >= c.maxRetries {
					return nil, "", fmt.Errorf("failed to read response after %d attempts: %w", attempts, readErr)
				}
				if err := sleep(ctx, c.backoff(attempts)); err != nil {
					return nil, "", err
				}
				continue
			}
			return body, resp.Header.Get("Content-Type"), nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := c.retryAfter(resp)
			discard(resp)
			logger.Info("Rate limited, waiting", map[string]interface{}{
				"wait": wait.String(),
				"url":  url,
			})
			if err := sleep(ctx, wait); err != nil {
				return nil, "", err
			}

		case resp.StatusCode == http.StatusUnauthorized:
			discard(resp)
			if refreshed {
				return nil, "", &APIError{
					StatusCode: resp.StatusCode,
					URL:        url,
					Body:       "access token rejected after refresh",
				}
			}
			refreshed = true
			token, err = c.tokens.Refresh(ctx)
			if err != nil {
				return nil, "", &AuthError{Err: fmt.Errorf("failed to refresh access token: %w", err)}
			}

		case resp.StatusCode >= 500:
			snippet := errorBody(resp)
			attempts++
			if attempts >= c.maxRetries {
				return nil, "", &APIError{StatusCode: resp.StatusCode, URL: url, Body: snippet}
			}
			logger.Warn("Server error, retrying", nil, map[string]interface{}{
				"status":  resp.StatusCode,
				"attempt": attempts,
				"url":     url,
			})
			if err := sleep(ctx, c.backoff(attempts)); err != nil {
				return nil, "", err
			}

		default:
			return nil, "", &APIError{StatusCode: resp.StatusCode, URL: url, Body: errorBody(resp)}
		}
	}
}

// backoff returns 1s, 2s, 4s, ... capped at 30s.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase << uint(attempt-1)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// retryAfter reads the server's Retry-After hint in seconds, falling back
// to the configured wait.
func (c *Client) retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.retryWait
}

func errorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return string(body)
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
