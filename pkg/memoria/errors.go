package memoria

import "errors"

var (
	// ErrEmptyQuery is returned when a retrieval query is blank.
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidNamespace is returned for namespace names that are not a
	// single path element.
	ErrInvalidNamespace = errors.New("invalid namespace")
)
