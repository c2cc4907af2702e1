package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/muskansindhu/xcraper/pkg/jsontree"
	"github.com/muskansindhu/xcraper/pkg/ratelimit"
)

const (
	searchQueryID = "nK1dw4oV3k4w5TdtcAdSww"
	searchOpName  = "SearchTimeline"
)

// recordEntryPattern matches the entry ids that carry actual results, as
// opposed to cursors, prompts and module wrappers.
var recordEntryPattern = regexp.MustCompile(`^(tweet|user)-`)

// gqlFeatures is the feature-flag set the endpoint requires on every call.
// Flags it does not know are ignored; flags it requires and does not see
// produce errors, so the set errs on the side of inclusion.
var gqlFeatures = map[string]interface{}{
	"rweb_lists_timeline_redesign_enabled":                                    true,
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"verified_phone_label_enabled":                                            false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                false,
	"tweet_awards_web_tipping_enabled":                                        false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"responsive_web_media_download_video_enabled":                             false,
	"responsive_web_enhance_cards_enabled":                                    false,
}

// EncodeParams flattens a parameter map into query values the GraphQL
// endpoint accepts: nested objects are compact-JSON encoded with nil
// members dropped, scalars are stringified.
func EncodeParams(obj map[string]interface{}) (url.Values, error) {
	values := url.Values{}
	for key, val := range obj {
		switch v := val.(type) {
		case map[string]interface{}:
			pruned := make(map[string]interface{}, len(v))
			for k, inner := range v {
				if inner != nil {
					pruned[k] = inner
				}
			}
			encoded, err := json.Marshal(pruned)
			if err != nil {
				return nil, fmt.Errorf("encoding param %q: %w", key, err)
			}
			values.Set(key, string(encoded))
		default:
			values.Set(key, fmt.Sprintf("%v", v))
		}
	}
	return values, nil
}

// Search fetches one page of the search timeline for the query, resuming
// from cursor when non-empty, and extracts entries, records, the next
// cursor and the rate-limit headers.
func (c *Client) Search(ctx context.Context, query, cursor string, count int) (*Page, error) {
	variables := map[string]interface{}{
		"rawQuery":    query,
		"count":       count,
		"product":     "Latest",
		"querySource": "typed_query",
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	params, err := EncodeParams(map[string]interface{}{
		"variables":    variables,
		"features":     gqlFeatures,
		"fieldToggles": map[string]interface{}{"withArticleRichContentState": false},
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("https://twitter.com/i/api/graphql/%s/%s", searchQueryID, searchOpName)
	data, header, err := c.FetchPage(ctx, endpoint, params)
	if err != nil {
		// A rate-limited request still reports its reset window. The
		// parsed headers ride back alongside the failure so the caller
		// can persist them.
		return &Page{Rate: ratelimit.ParseHeaders(header)}, err
	}

	entries := ExtractEntries(data)
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, NormalizeEntry(entry, query))
	}

	return &Page{
		Raw:     data,
		Entries: entries,
		Records: records,
		Cursor:  ExtractCursor(data),
		Rate:    ratelimit.ParseHeaders(header),
	}, nil
}

// ExtractEntries collects the timeline entries whose ids carry the
// tweet/user record prefix, wherever the entry lists sit in the payload.
func ExtractEntries(data interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, entryList := range jsontree.Find(data, "entries") {
		list, ok := entryList.([]interface{})
		if !ok {
			continue
		}
		for _, raw := range list {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			entryID, _ := entry["entryId"].(string)
			if recordEntryPattern.MatchString(entryID) {
				out = append(out, entry)
			}
		}
	}
	return out
}

// ExtractCursor finds the bottom cursor for the next page. Two schema
// epochs are supported: the newer one nests the value under itemContent,
// the older one exposes it directly on the entry content. Empty means the
// server issued no continuation.
func ExtractCursor(data interface{}) string {
	for _, entryList := range jsontree.Find(data, "entries") {
		list, ok := entryList.([]interface{})
		if !ok {
			continue
		}
		for _, raw := range list {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			entryID, _ := entry["entryId"].(string)
			if !strings.Contains(entryID, "cursor-bottom") && !strings.Contains(entryID, "cursor-showmorethreads") {
				continue
			}
			content, ok := entry["content"].(map[string]interface{})
			if !ok {
				continue
			}
			if itemContent, ok := content["itemContent"].(map[string]interface{}); ok {
				if value, ok := itemContent["value"].(string); ok {
					return value
				}
			}
			if value, ok := content["value"].(string); ok {
				return value
			}
		}
	}
	return ""
}

// NormalizeEntry reduces a raw timeline entry to the stable record shape.
// The query is recorded on every entry so merged artifacts stay traceable.
func NormalizeEntry(entry map[string]interface{}, query string) Record {
	entryID, _ := entry["entryId"].(string)
	rec := Record{Query: query}

	switch {
	case strings.HasPrefix(entryID, "tweet-"):
		rec.ID = strings.TrimPrefix(entryID, "tweet-")
		rec.URL = fmt.Sprintf("https://twitter.com/i/status/%s", rec.ID)
		if text, ok := jsontree.FirstString(entry, "full_text"); ok {
			rec.Text = text
		}
	case strings.HasPrefix(entryID, "user-"):
		rec.ID = strings.TrimPrefix(entryID, "user-")
		if screenName, ok := jsontree.FirstString(entry, "screen_name"); ok {
			rec.URL = fmt.Sprintf("https://twitter.com/%s", screenName)
		} else {
			rec.URL = fmt.Sprintf("https://twitter.com/intent/user?user_id=%s", rec.ID)
		}
		if desc, ok := jsontree.FirstString(entry, "description"); ok {
			rec.Text = desc
		}
	default:
		rec.ID = entryID
	}
	return rec
}
