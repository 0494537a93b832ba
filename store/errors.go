// ABOUTME: Store error types
// ABOUTME: NotFoundError carries the entity kind and matches ErrNotFound
package store

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing record. It renders as "Lead not found".
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}
