package socialaccount

import "errors"

// ErrNotFound is returned when a user has no connection for a platform.
var ErrNotFound = errors.New("social account not found")

// ErrNotConnected is the publish-path form of a missing connection: the
// post cannot proceed because its owner never linked an X account.
var ErrNotConnected = errors.New("x account not connected")

// ErrRefreshFailed wraps a failed token-refresh exchange. The stored
// credential record is left untouched when this is returned.
var ErrRefreshFailed = errors.New("token refresh failed")
