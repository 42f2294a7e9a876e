package produce

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnknownClass is matched by every UnknownClassError.
var ErrUnknownClass = errors.New("unknown class index")

// UnknownClassError reports a class index outside the label table.
type UnknownClassError struct {
	Index int
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown class index %d (want 0..%d)", e.Index, NumClasses-1)
}

func (e *UnknownClassError) Is(target error) bool {
	return target == ErrUnknownClass
}

// Resolution is a model class mapped to what users see.
type Resolution struct {
	Index     int      `json:"index"`
	Canonical string   `json:"canonical"`
	Label     string   `json:"label"`
	Category  Category `json:"category"`
}

// Resolve maps a model output index to its label and category.
func Resolve(classIndex int) (Resolution, error) {
	if classIndex < 0 || classIndex >= NumClasses {
		return Resolution{}, &UnknownClassError{Index: classIndex}
	}
	e := table[classIndex]
	return Resolution{
		Index:     classIndex,
		Canonical: e.Label,
		Label:     Capitalize(e.Label),
		Category:  e.Category,
	}, nil
}

// Lookup finds a class by its display name, ignoring case.
func Lookup(display string) (Resolution, bool) {
	i, ok := byDisplay[Capitalize(strings.TrimSpace(display))]
	if !ok {
		return Resolution{}, false
	}
	r, _ := Resolve(i)
	return r, true
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
