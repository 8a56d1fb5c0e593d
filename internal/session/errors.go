package session

import "errors"

// ErrNotAuthenticated indicates an operation that requires a logged-in
// session was attempted without one.
var ErrNotAuthenticated = errors.New("not authenticated")
