package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by id finds no active row.
var ErrNotFound = errors.New("not found")

// StoreError wraps any persistence failure with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}
