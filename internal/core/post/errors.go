package post

import "errors"

// ErrNotFound is returned when a post id does not match any row.
var ErrNotFound = errors.New("post not found")
