package pricing

import "errors"

var (
	// ErrModelNotFound is returned when no active pricing model exists for a category.
	ErrModelNotFound = errors.New("pricing model not found")
	// ErrInvalidRequest is returned for requests that cannot be priced at all.
	ErrInvalidRequest = errors.New("invalid prediction request")
	// ErrRulesUnavailable is returned when the pricing rules could not be loaded.
	ErrRulesUnavailable = errors.New("pricing rules unavailable")
)
