// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates internal server error.
//
// For balance mutations it also means the outcome is unknown: the caller has to
// re-read the account and its ledger before retrying.
var ErrInternal = errors.New("internal")
