package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrNotFound marks a reference to a row that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an actor that may not perform the mutation.
	ErrForbidden = errors.New("forbidden")
	// ErrValidationFailed marks input rejected before it reaches the database.
	ErrValidationFailed = errors.New("validation failed")

	ErrMessageNotFound     = fmt.Errorf("message %w", ErrNotFound)
	ErrReplyTargetNotFound = fmt.Errorf("reply target %w", ErrNotFound)
	ErrNotMessageAuthor    = fmt.Errorf("%w: only the author may edit a message", ErrForbidden)
)

const pqForeignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

// Message ids are UUIDs; anything else cannot name a stored message.
func isMessageID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
