package twitter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
)

const (
	// BaseURL is the base URL for X's web API
	BaseURL = "https://x.com"

	// PageSize is the fixed bookmarks page size. The web client always
	// requests 20; deviating is an easy way to look like a bot.
	PageSize = 20

	// TweetEntryPrefix marks timeline entries carrying tweet content
	TweetEntryPrefix = "tweet-"

	// CursorBottomPrefix marks the pagination-marker entry for the next page
	CursorBottomPrefix = "cursor-bottom-"
)

// bookmarksRoutePattern matches the Bookmarks GraphQL URL and captures the
// deployment-specific route id.
var bookmarksRoutePattern = regexp.MustCompile(`https://x\.com/i/api/graphql/([^/]+)/Bookmarks`)

// MatchBookmarksRoute extracts the route id from a Bookmarks API URL.
// URLs with a different path shape return ok=false.
func MatchBookmarksRoute(rawURL string) (string, bool) {
	m := bookmarksRoutePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// bookmarksVariables is the variables payload of a Bookmarks request.
type bookmarksVariables struct {
	Count                  int    `json:"count"`
	IncludePromotedContent bool   `json:"includePromotedContent"`
	Cursor                 string `json:"cursor,omitempty"`
}

// BookmarksURL constructs the URL for one bookmarks page. An empty cursor
// requests the first page. The features map is serialized verbatim.
func BookmarksURL(baseURL, routeID, cursor string, features map[string]bool) (string, error) {
	variables, err := json.Marshal(bookmarksVariables{
		Count:                  PageSize,
		IncludePromotedContent: true,
		Cursor:                 cursor,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode variables: %w", err)
	}

	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("failed to encode features: %w", err)
	}

	return fmt.Sprintf("%s/i/api/graphql/%s/Bookmarks?features=%s&variables=%s",
		baseURL, routeID,
		url.QueryEscape(string(featuresJSON)),
		url.QueryEscape(string(variables))), nil
}
