package twitter

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchBookmarksRoute(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{
			name:   "matching url",
			url:    "https://x.com/i/api/graphql/aBc123_-/Bookmarks",
			wantID: "aBc123_-",
			wantOK: true,
		},
		{
			name:   "matching url with query parameters",
			url:    "https://x.com/i/api/graphql/QqZ9/Bookmarks?features=%7B%7D&variables=%7B%7D",
			wantID: "QqZ9",
			wantOK: true,
		},
		{
			name:   "same domain different operation",
			url:    "https://x.com/i/api/graphql/QqZ9/HomeTimeline",
			wantOK: false,
		},
		{
			name:   "same domain non-api url",
			url:    "https://x.com/i/bookmarks/all",
			wantOK: false,
		},
		{
			name:   "different domain",
			url:    "https://example.com/i/api/graphql/QqZ9/Bookmarks",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := MatchBookmarksRoute(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestBookmarksURLFirstPage(t *testing.T) {
	apiURL, err := BookmarksURL(BaseURL, "route123", "", map[string]bool{"some_flag": true})
	require.NoError(t, err)

	parsed, err := url.Parse(apiURL)
	require.NoError(t, err)
	assert.Equal(t, "/i/api/graphql/route123/Bookmarks", parsed.Path)

	var variables map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(parsed.Query().Get("variables")), &variables))
	assert.Equal(t, float64(20), variables["count"])
	assert.Equal(t, true, variables["includePromotedContent"])
	assert.NotContains(t, variables, "cursor")

	var features map[string]bool
	require.NoError(t, json.Unmarshal([]byte(parsed.Query().Get("features")), &features))
	assert.Equal(t, map[string]bool{"some_flag": true}, features)
}

func TestBookmarksURLWithCursor(t *testing.T) {
	apiURL, err := BookmarksURL(BaseURL, "route123", "cursor-value==", DefaultFeatures())
	require.NoError(t, err)

	parsed, err := url.Parse(apiURL)
	require.NoError(t, err)

	var variables map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(parsed.Query().Get("variables")), &variables))
	assert.Equal(t, "cursor-value==", variables["cursor"])
}

func TestBookmarksURLMatchesOwnRoutePattern(t *testing.T) {
	apiURL, err := BookmarksURL(BaseURL, "route123", "", DefaultFeatures())
	require.NoError(t, err)

	id, ok := MatchBookmarksRoute(apiURL)
	assert.True(t, ok)
	assert.Equal(t, "route123", id)
}

func TestDefaultFeaturesIsCopied(t *testing.T) {
	a := DefaultFeatures()
	a["graphql_timeline_v2_bookmark_timeline"] = false
	assert.True(t, DefaultFeatures()["graphql_timeline_v2_bookmark_timeline"])
}

func TestDefaultFeaturesShape(t *testing.T) {
	features := DefaultFeatures()
	assert.GreaterOrEqual(t, len(features), 30)
	for name := range features {
		assert.False(t, strings.Contains(name, " "), "flag %q contains spaces", name)
	}
}
