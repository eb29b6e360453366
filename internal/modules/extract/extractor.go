// Package extract turns free-form user text into an ordered list of place names.
package extract

import (
	"context"
	"errors"
	"strings"
)

// Extractor produces place names in the order they should be read (start first, end second).
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string) ([]string, error)
}

var (
	ErrMissingKeyword        = errors.New("missing keyword")
	ErrMalformedRequest      = errors.New("malformed route request")
	ErrInsufficientLocations = errors.New("could not detect both start and end locations")
)

// KeywordError names the keywords absent from the message. It matches ErrMissingKeyword.
type KeywordError struct {
	Missing []string
}

func (e *KeywordError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		quoted[i] = "'" + k + "'"
	}
	return "missing keyword " + strings.Join(quoted, " and ")
}

func (e *KeywordError) Is(target error) bool { return target == ErrMissingKeyword }

// IsMissing reports whether keyword is one of the missing ones.
func (e *KeywordError) IsMissing(keyword string) bool {
	for _, k := range e.Missing {
		if k == keyword {
			return true
		}
	}
	return false
}
