package repository

import (
	"errors"
	"fmt"
)

var ErrDimensionMismatch = errors.New("vector index dimension mismatch")

// DuplicateKeyError reports a batch insert in which some documents already
// existed. Inserted documents are durable.
type DuplicateKeyError struct {
	Inserted   int
	Duplicates int
	Cause      error
}

func (e *DuplicateKeyError) Error() string {
	msg := fmt.Sprintf("duplicate key: %d inserted, %d already present", e.Inserted, e.Duplicates)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DuplicateKeyError) Unwrap() error { return e.Cause }

// AsDuplicateKey returns the DuplicateKeyError in err's chain, if any.
func AsDuplicateKey(err error) (*DuplicateKeyError, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
