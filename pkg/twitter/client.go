package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"xbookmarks/pkg/errors"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/session"
)

// Client issues authenticated requests against the Bookmarks endpoint.
// Credentials are passed per call; the client itself holds no secrets.
type Client struct {
	httpClient *http.Client
	baseURL    string
	features   map[string]bool
	logger     logger.Logger
}

// NewClient creates a new Bookmarks API client. A nil features map uses
// the built-in defaults.
func NewClient(timeout time.Duration, features map[string]bool, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if features == nil {
		features = DefaultFeatures()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    BaseURL,
		features:   features,
		logger:     log,
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// FetchBookmarksPage fetches one page of the bookmarks timeline. An empty
// cursor requests the first page. The captured credentials are sent
// verbatim as headers. A non-success status fails the call with a
// *errors.RemoteAPIError carrying status and body; an unparseable or
// shape-drifted body fails with *errors.MalformedResponseError.
func (c *Client) FetchBookmarksPage(ctx context.Context, creds session.Credentials, routeID, cursor string) (*BookmarksResponse, error) {
	apiURL, err := BookmarksURL(c.baseURL, routeID, cursor, c.features)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Cookie", creds.Cookie)
	req.Header.Set("X-Csrf-Token", creds.CSRFToken)
	req.Header.Set("Authorization", creds.Authorization)

	start := time.Now()
	c.logger.DebugWithFields("fetching bookmarks page", map[string]interface{}{
		"route_id":   routeID,
		"has_cursor": cursor != "",
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("bookmarks request failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	c.logger.DebugWithFields("bookmarks request completed", map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &errors.RemoteAPIError{
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	var response BookmarksResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &errors.MalformedResponseError{
			Detail: fmt.Sprintf("failed to parse JSON: %v", err),
		}
	}

	return &response, nil
}
