package extract

import (
	"context"
	"strings"
)

const (
	KeywordFrom = "from"
	KeywordTo   = "to"
)

// KeywordExtractor reads "... from <start> to <end>".
//
// The split is deliberately literal: "from" and "to" are matched as substrings, so a place
// name containing either (e.g. "Boston") splits in the wrong spot.
type KeywordExtractor struct{}

func (KeywordExtractor) Name() string { return "keyword" }

// Extract returns [start, end], lower-cased and trimmed.
func (KeywordExtractor) Extract(_ context.Context, text string) ([]string, error) {
	msg := strings.ToLower(text)

	var missing []string
	for _, kw := range []string{KeywordFrom, KeywordTo} {
		if !strings.Contains(msg, kw) {
			missing = append(missing, kw)
		}
	}
	if len(missing) > 0 {
		return nil, &KeywordError{Missing: missing}
	}

	_, rest, _ := strings.Cut(msg, KeywordFrom)
	start, end, found := strings.Cut(rest, KeywordTo)
	if !found {
		return nil, ErrMalformedRequest
	}

	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, ErrMalformedRequest
	}
	return []string{start, end}, nil
}
