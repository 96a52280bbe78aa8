package content

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every element and attribute; only text survives.
var strictPolicy = bluemonday.StrictPolicy()

// SanitizeDocument walks a decoded JSON document and neutralizes markup in
// every string value. Maps and slices are rewritten in place; other value
// types pass through untouched.
func SanitizeDocument(doc interface{}) interface{} {
	switch v := doc.(type) {
	case map[string]interface{}:
		for key, value := range v {
			v[key] = SanitizeDocument(value)
		}
		return v
	case []interface{}:
		for i, value := range v {
			v[i] = SanitizeDocument(value)
		}
		return v
	case string:
		return sanitizeString(v)
	default:
		return doc
	}
}

func sanitizeString(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return strictPolicy.Sanitize(s)
}
