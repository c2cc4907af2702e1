package twitter

import "github.com/muskansindhu/xcraper/pkg/ratelimit"

// Record is the normalized unit of output: one matched timeline entry with
// a stable identity, a canonical URL and the extracted text body.
type Record struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Query string `json:"query"`
}

// Page is one fetch's outcome: the raw payload, the entries that matched
// the expected record prefix, their normalized records, the next cursor
// (empty means exhaustion) and the observed rate-limit headers.
type Page struct {
	Raw     interface{}
	Entries []map[string]interface{}
	Records []Record
	Cursor  string
	Rate    ratelimit.Headers
}
