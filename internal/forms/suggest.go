package forms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/cropform/internal/chain"
)

const maxSuggestions = 3

// Suggest returns up to three option values closest to input, nearest first.
// Options further than half the input length away are ignored.
func Suggest(input string, options []chain.Option) []string {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return nil
	}
	limit := len(in)/2 + 1

	type scored struct {
		value string
		dist  int
	}
	var hits []scored
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if seen[o.Value] {
			continue
		}
		seen[o.Value] = true
		d := levenshtein.ComputeDistance(in, strings.ToLower(o.Label))
		if dv := levenshtein.ComputeDistance(in, strings.ToLower(o.Value)); dv < d {
			d = dv
		}
		if strings.HasPrefix(strings.ToLower(o.Label), in) {
			d = 0
		}
		if d <= limit {
			hits = append(hits, scored{value: o.Value, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > maxSuggestions {
		hits = hits[:maxSuggestions]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.value)
	}
	return out
}

// Resolve maps user input onto an option value. Matching is exact first,
// then case-insensitive on value or label. Unmatched input returns an error
// listing the nearest candidates.
func Resolve(input string, options []chain.Option) (string, error) {
	in := strings.TrimSpace(input)
	for _, o := range options {
		if o.Value == in {
			return o.Value, nil
		}
	}
	for _, o := range options {
		if strings.EqualFold(o.Value, in) || strings.EqualFold(o.Label, in) {
			return o.Value, nil
		}
	}
	if hints := Suggest(in, options); len(hints) > 0 {
		return "", fmt.Errorf("%q is not an option (did you mean %s?)", in, strings.Join(quoteAll(hints), ", "))
	}
	return "", fmt.Errorf("%q is not an option", in)
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
