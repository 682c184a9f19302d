package api

import "errors"

// Error taxonomy for content fetching. Callers match with errors.Is; every
// failure of the fetch path wraps exactly one of these.
var (
	// ErrUnauthorized means no current user could be resolved for the request
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadData means the server reported a terminal content problem: an
	// error-union response, a FAILED rendering status, or an exhausted retry budget
	ErrBadData = errors.New("bad data")

	// ErrNetwork means a transport or deserialization failure on a single attempt
	ErrNetwork = errors.New("network error")
)
