package state

import (
	"database/sql"
	"errors"

	"github.com/obra/obra/pkg/model"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// classify wraps a raw storage-layer error as StorageUnavailableError
// unless it is already one of StateManager's typed errors or a
// *model.TransitionError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	var iv *InvariantViolationError
	var cf *ConflictError
	var su *StorageUnavailableError
	var te *model.TransitionError
	if errors.As(err, &nf) || errors.As(err, &iv) || errors.As(err, &cf) || errors.As(err, &su) || errors.As(err, &te) {
		return err
	}
	return &StorageUnavailableError{Cause: err}
}
