package service

import "errors"

// ErrNotFound is the uniform signal for an owned resource that is missing or
// belongs to another user. The two cases are deliberately indistinguishable
// so identifiers cannot be enumerated.
var ErrNotFound = errors.New("not found")
