package chunker

import "errors"

// ErrInvalidConfig is returned when the window would not advance
// (overlap >= size) or the size is not positive.
var ErrInvalidConfig = errors.New("chunker: invalid chunk config")
