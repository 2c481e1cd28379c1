package textutil

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ScalarString renders a raw JSON value as a string the way a loosely typed
// producer would expect: strings verbatim, numbers in their literal form,
// booleans as true/false. Null, objects, arrays, and malformed input yield "".
func ScalarString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return ""
		}
		return strconv.FormatBool(b)
	case 'n', '{', '[':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return ""
		}
		return n.String()
	}
}

// ScalarStrings renders a raw JSON array through ScalarString, dropping
// elements that render empty. Anything other than an array yields nil.
func ScalarStrings(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := ScalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
