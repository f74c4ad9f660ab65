package usage

import "errors"

// ErrLimitReached indicates the principal exhausted their analysis quota.
var ErrLimitReached = errors.New("limit reached")
