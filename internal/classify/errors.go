package classify

import "errors"

// ErrInvalidInput marks a raw tensor of the wrong length.
var ErrInvalidInput = errors.New("invalid model input")
