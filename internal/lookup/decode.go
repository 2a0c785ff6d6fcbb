package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jask/cropform/internal/chain"
)

// decodeOptions accepts a bare JSON list or an object holding the list under
// field. An object with "success": false is a backend rejection.
func decodeOptions(body []byte, field string) ([]chain.Option, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	switch trimmed[0] {
	case '[':
		return decodeList(trimmed)
	case '{':
	default:
		return nil, fmt.Errorf("unexpected response body")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if raw, ok := obj["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err == nil && !success {
			return nil, &chain.BackendError{Message: messageFrom(obj)}
		}
	}
	if field != "" {
		if raw, ok := obj[field]; ok {
			return decodeList(raw)
		}
	}
	// fall back to the only list-valued member
	var found json.RawMessage
	for _, raw := range obj {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("response has no %q list and more than one candidate", field)
		}
		found = raw
	}
	if found == nil {
		return nil, fmt.Errorf("response has no %q list", field)
	}
	return decodeList(found)
}

func decodeList(raw json.RawMessage) ([]chain.Option, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []chain.Option{}, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err == nil {
		out := make([]chain.Option, 0, len(values))
		for _, v := range values {
			out = append(out, chain.Option{Value: v, Label: v})
		}
		return out, nil
	}
	var pairs []chain.Option
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("decode option list: %w", err)
	}
	for i := range pairs {
		if pairs[i].Label == "" {
			pairs[i].Label = pairs[i].Value
		}
	}
	return pairs, nil
}

// errorMessage extracts "error" or "message" from a JSON error body.
func errorMessage(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &obj); err != nil {
		return ""
	}
	return messageFrom(obj)
}

func messageFrom(obj map[string]json.RawMessage) string {
	for _, key := range []string{"error", "message"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
