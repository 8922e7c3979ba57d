package dedupe

import "errors"

// Sentinel kinds for duplicate checks.
var (
	// ErrUnableToValidate means the exact check could not reach the catalog.
	// It is distinct from "no duplicate found".
	ErrUnableToValidate = errors.New("unable to validate submission")
	ErrUnknownDraft     = errors.New("unknown draft kind")
)
