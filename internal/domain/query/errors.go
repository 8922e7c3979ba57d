package query

import "errors"

// ErrInvalidGazetteer is returned when lookup tables fail to load or validate.
var ErrInvalidGazetteer = errors.New("invalid gazetteer")
