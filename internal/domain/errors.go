package domain

import "errors"

// Sentinel errors for domain-level error handling. Most rejection paths in
// the matching engine are not errors at all (spec.md §7 item 4/5: a
// solvency rejection or a stale-passive eviction is silent, not an error) —
// these sentinels cover the remaining cases that do need to be reported:
// client-registry lookups, the admin HTTP surface, and fatal protocol
// violations.
var (
	ErrClientAlreadyExists = errors.New("client_already_exists")
	ErrClientNotFound      = errors.New("client_not_found")
	ErrTickerNotFound      = errors.New("ticker_not_found")
	ErrProtocolViolation   = errors.New("protocol_violation")
)

// ValidationError represents a malformed-input failure, e.g. a decode
// error on an inbound message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
