package internal

import "errors"

var (
	ErrFetchUnavailable  = errors.New("page unavailable")
	ErrSelectorsUnready  = errors.New("feed selectors are not configured")
	ErrMalformedSelector = errors.New("malformed selector")
	ErrOracleUnavailable = errors.New("selector suggestion unavailable")
	ErrFeedNotFound      = errors.New("feed not found")
	ErrInvalidURL        = errors.New("invalid page URL")
)
