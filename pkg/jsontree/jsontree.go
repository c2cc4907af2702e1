// Package jsontree provides structural search over decoded JSON values.
//
// Responses of interest nest their payloads deeply and under more than one
// schema. Rather than enumerate absolute paths to a field and chase every
// schema change, callers search for the key wherever it appears and
// post-process the results.
package jsontree

// Find returns all values stored under the given key anywhere inside v,
// which must be a value produced by encoding/json decoding into interface{}
// (maps, slices and scalars). Matches are collected depth-first: a matching
// map contributes its value before its children are descended into. Empty
// and falsy values (nil, "", 0, false, empty containers) are not collected,
// mirroring the presence check this search was built around.
func Find(v interface{}, key string) []interface{} {
	var out []interface{}
	walk(v, key, &out)
	return out
}

// First returns the first value found for key, or nil when absent
func First(v interface{}, key string) interface{} {
	found := Find(v, key)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// FirstString returns the first string-typed value found for key
func FirstString(v interface{}, key string) (string, bool) {
	for _, found := range Find(v, key) {
		if s, ok := found.(string); ok {
			return s, true
		}
	}
	return "", false
}

func walk(v interface{}, key string, out *[]interface{}) {
	switch node := v.(type) {
	case []interface{}:
		for _, elem := range node {
			walk(elem, key, out)
		}
	case map[string]interface{}:
		if val, ok := node[key]; ok && truthy(val) {
			*out = append(*out, val)
		}
		for _, val := range node {
			walk(val, key, out)
		}
	}
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}
