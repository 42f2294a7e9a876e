// Package nutrition looks up calorie text for a produce label.
//
// Lookups are best effort: every failure is reported as ErrLookupUnavailable
// and callers are expected to carry on without the nutrition line.
package nutrition

import (
	"context"
	"errors"
)

var ErrLookupUnavailable = errors.New("nutrition lookup unavailable")

type Fetcher interface {
	Fetch(ctx context.Context, label string) (string, error)
}

// Format renders lookup text the way it is displayed next to a prediction.
func Format(text string) string {
	if text == "" {
		return ""
	}
	return text + " (100 grams)"
}
