package twitter

import (
	"strings"

	"xbookmarks/pkg/errors"
)

// BookmarksResponse is the top-level response from the Bookmarks endpoint
type BookmarksResponse struct {
	Data Data `json:"data"`
}

// Data wraps the bookmark timeline in the response
type Data struct {
	BookmarkTimelineV2 BookmarkTimelineV2 `json:"bookmark_timeline_v2"`
}

// BookmarkTimelineV2 holds the timeline container
type BookmarkTimelineV2 struct {
	Timeline Timeline `json:"timeline"`
}

// Timeline contains the list of timeline instructions
type Timeline struct {
	Instructions []Instruction `json:"instructions"`
}

// Instruction carries one page of timeline entries
type Instruction struct {
	Entries []Entry `json:"entries"`
}

// Entry is a single timeline entry: either tweet content or a pagination
// marker, distinguished by the entryId prefix.
type Entry struct {
	EntryID string       `json:"entryId"`
	Content EntryContent `json:"content"`
}

// EntryContent is the payload of a timeline entry. Value is set on cursor
// entries; ItemContent on tweet entries.
type EntryContent struct {
	Value       string       `json:"value,omitempty"`
	ItemContent *ItemContent `json:"itemContent,omitempty"`
}

// ItemContent wraps the tweet lookup result
type ItemContent struct {
	TweetResults TweetResults `json:"tweet_results"`
}

// TweetResults wraps the result payload
type TweetResults struct {
	Result *TweetResult `json:"result"`
}

// TweetResult carries the tweet. For some result types (e.g. tweets with
// visibility limits) the payload is nested one level deeper under Tweet.
type TweetResult struct {
	Tweet  *InnerTweet  `json:"tweet,omitempty"`
	Legacy *TweetLegacy `json:"legacy,omitempty"`
}

// InnerTweet is the nested tweet payload variant
type InnerTweet struct {
	Legacy *TweetLegacy `json:"legacy,omitempty"`
}

// TweetLegacy holds the legacy tweet fields the export cares about
type TweetLegacy struct {
	FullText         string        `json:"full_text,omitempty"`
	CreatedAt        string        `json:"created_at,omitempty"`
	Entities         MediaEntities `json:"entities"`
	ExtendedEntities MediaEntities `json:"extended_entities"`
}

// MediaEntities holds a list of media attachments
type MediaEntities struct {
	Media []MediaEntity `json:"media"`
}

// MediaEntity is one media attachment
type MediaEntity struct {
	Type          string     `json:"type"`
	MediaURLHTTPS string     `json:"media_url_https"`
	VideoInfo     *VideoInfo `json:"video_info,omitempty"`
}

// VideoInfo holds the variant list for video and animated-gif media
type VideoInfo struct {
	Variants []VideoVariant `json:"variants"`
}

// VideoVariant is one encoding of a video
type VideoVariant struct {
	ContentType string `json:"content_type"`
	Bitrate     int    `json:"bitrate,omitempty"`
	URL         string `json:"url"`
}

// Entries validates the nested response shape and returns the first
// instruction's entry list. The API evolves independently of this client,
// so a missing path is reported as a typed failure instead of surfacing
// as a zero-value dereference somewhere downstream.
func (r *BookmarksResponse) Entries() ([]Entry, error) {
	instructions := r.Data.BookmarkTimelineV2.Timeline.Instructions
	if len(instructions) == 0 {
		return nil, &errors.MalformedResponseError{Detail: "missing timeline instructions"}
	}
	if instructions[0].Entries == nil {
		return nil, &errors.MalformedResponseError{Detail: "missing entries in first instruction"}
	}
	return instructions[0].Entries, nil
}

// IsTweet reports whether the entry carries tweet content.
func (e *Entry) IsTweet() bool {
	return strings.HasPrefix(e.EntryID, TweetEntryPrefix)
}

// IsBottomCursor reports whether the entry is the next-page marker.
func (e *Entry) IsBottomCursor() bool {
	return strings.HasPrefix(e.EntryID, CursorBottomPrefix)
}

// NextCursor scans entries for the bottom pagination marker and returns
// its cursor value, or empty when the page has no marker.
func NextCursor(entries []Entry) string {
	for i := range entries {
		if entries[i].IsBottomCursor() {
			return entries[i].Content.Value
		}
	}
	return ""
}
