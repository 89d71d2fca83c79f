package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrEventIDRequired   = errors.New("security event id is required")
	ErrEventKindRequired = errors.New("security event kind is required")
)
