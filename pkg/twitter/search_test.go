package twitter

import (
	"encoding/json"
	"net/url"
	"testing"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("failed to decode fixture: %v", err)
	}
	return v
}

const timelinePayload = `{
	"data": {"search_by_raw_query": {"search_timeline": {"timeline": {
		"instructions": [{"type": "TimelineAddEntries", "entries": [
			{"entryId": "tweet-111", "content": {"itemContent": {"tweet_results": {"result": {"legacy": {"full_text": "first tweet"}}}}}},
			{"entryId": "user-222", "content": {"itemContent": {"user_results": {"result": {"legacy": {"screen_name": "someone", "description": "a bio"}}}}}},
			{"entryId": "promoted-tweet-333", "content": {}},
			{"entryId": "cursor-top-0", "content": {"value": "TOP"}},
			{"entryId": "cursor-bottom-0", "content": {"itemContent": {"value": "NEXT_V2"}}}
		]}]
	}}}}
}`

func TestExtractEntries(t *testing.T) {
	entries := ExtractEntries(decode(t, timelinePayload))
	if len(entries) != 2 {
		t.Fatalf("expected 2 record entries, got %d", len(entries))
	}
	ids := []string{entries[0]["entryId"].(string), entries[1]["entryId"].(string)}
	for _, id := range ids {
		if id != "tweet-111" && id != "user-222" {
			t.Errorf("unexpected entry id %q", id)
		}
	}
}

func TestExtractCursorNestedEpoch(t *testing.T) {
	if cursor := ExtractCursor(decode(t, timelinePayload)); cursor != "NEXT_V2" {
		t.Errorf("expected cursor NEXT_V2, got %q", cursor)
	}
}

func TestExtractCursorFlatEpoch(t *testing.T) {
	payload := `{"timeline": {"entries": [
		{"entryId": "cursor-bottom-0", "content": {"value": "NEXT_V1"}}
	]}}`
	if cursor := ExtractCursor(decode(t, payload)); cursor != "NEXT_V1" {
		t.Errorf("expected cursor NEXT_V1, got %q", cursor)
	}
}

func TestExtractCursorShowMoreThreads(t *testing.T) {
	payload := `{"timeline": {"entries": [
		{"entryId": "cursor-showmorethreads-0", "content": {"value": "MORE"}}
	]}}`
	if cursor := ExtractCursor(decode(t, payload)); cursor != "MORE" {
		t.Errorf("expected cursor MORE, got %q", cursor)
	}
}

func TestExtractCursorAbsent(t *testing.T) {
	payload := `{"timeline": {"entries": [
		{"entryId": "tweet-1", "content": {}}
	]}}`
	if cursor := ExtractCursor(decode(t, payload)); cursor != "" {
		t.Errorf("expected no cursor, got %q", cursor)
	}
}

func TestNormalizeEntryTweet(t *testing.T) {
	entry := decode(t, `{
		"entryId": "tweet-9876",
		"content": {"itemContent": {"tweet_results": {"result": {"legacy": {"full_text": "hello world"}}}}}
	}`).(map[string]interface{})

	rec := NormalizeEntry(entry, "elon musk")
	if rec.ID != "9876" {
		t.Errorf("expected id 9876, got %q", rec.ID)
	}
	if rec.URL != "https://twitter.com/i/status/9876" {
		t.Errorf("unexpected url %q", rec.URL)
	}
	if rec.Text != "hello world" {
		t.Errorf("unexpected text %q", rec.Text)
	}
	if rec.Query != "elon musk" {
		t.Errorf("expected query recorded on the entry, got %q", rec.Query)
	}
}

func TestNormalizeEntryUser(t *testing.T) {
	entry := decode(t, `{
		"entryId": "user-42",
		"content": {"itemContent": {"user_results": {"result": {"legacy": {"screen_name": "jane", "description": "bio text"}}}}}
	}`).(map[string]interface{})

	rec := NormalizeEntry(entry, "q")
	if rec.ID != "42" {
		t.Errorf("expected id 42, got %q", rec.ID)
	}
	if rec.URL != "https://twitter.com/jane" {
		t.Errorf("unexpected url %q", rec.URL)
	}
	if rec.Text != "bio text" {
		t.Errorf("unexpected text %q", rec.Text)
	}
}

func TestEncodeParams(t *testing.T) {
	values, err := EncodeParams(map[string]interface{}{
		"variables": map[string]interface{}{
			"rawQuery": "elon musk",
			"count":    20,
			"skipped":  nil,
		},
		"plain": "value",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := values.Get("plain"); got != "value" {
		t.Errorf("expected scalar passthrough, got %q", got)
	}

	var variables map[string]interface{}
	if err := json.Unmarshal([]byte(values.Get("variables")), &variables); err != nil {
		t.Fatalf("variables not valid JSON: %v", err)
	}
	if variables["rawQuery"] != "elon musk" {
		t.Errorf("unexpected rawQuery %v", variables["rawQuery"])
	}
	if _, present := variables["skipped"]; present {
		t.Error("nil members must be dropped from nested objects")
	}
}

func TestEncodeParamsProducesQueryValues(t *testing.T) {
	values, err := EncodeParams(map[string]interface{}{"count": 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := url.ParseQuery(values.Encode())
	if err != nil {
		t.Fatalf("encoded values not parseable: %v", err)
	}
	if parsed.Get("count") != "20" {
		t.Errorf("expected count=20, got %q", parsed.Get("count"))
	}
}
