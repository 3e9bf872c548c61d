package uv

import "errors"

// ErrUnknownVariant is returned when parsing or encoding an enum value that
// is not one of its declared variants. Calculate itself never fails.
var ErrUnknownVariant = errors.New("unknown enum variant")
