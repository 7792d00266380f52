package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActive is returned when the user already has an assignment before its deadline.
	ErrAlreadyActive = errors.New("an active quiz assignment already exists")
	// ErrRetakeNotAllowed is returned when the user completed a quiz and retakes are disabled.
	ErrRetakeNotAllowed = errors.New("quiz already completed and retakes are not allowed")
	// ErrNoQuestionsAvailable indicates the catalog has nothing eligible to sample.
	ErrNoQuestionsAvailable = errors.New("no questions available for the quiz")
	// ErrNotFound is returned for missing assignments and for assignments owned by someone else.
	ErrNotFound = errors.New("assignment not found or access denied")
	// ErrAlreadyCompleted is returned when writing to or resuming a completed assignment.
	ErrAlreadyCompleted = errors.New("assignment has already been completed")
	// ErrQuestionNotInAssignment is returned when answering a question outside the assignment.
	ErrQuestionNotInAssignment = errors.New("question is not part of this assignment")
	// ErrLoginRequired is returned when no user identity was supplied.
	ErrLoginRequired = errors.New("user must be logged in to take the quiz")
	// ErrQuestionNotFound indicates the catalog has no question with the given id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCategoryNotFound indicates the catalog has no category with the given id.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrResultNotFound indicates no result row exists for an assignment.
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidSettings indicates the quiz configuration cannot be used.
	ErrInvalidSettings = errors.New("invalid quiz settings")
	// ErrResultNotRecorded marks an assignment flipped to completed whose result insert failed.
	ErrResultNotRecorded = errors.New("assignment completed but result was not recorded")
)

var preconditions = []error{
	ErrAlreadyActive,
	ErrRetakeNotAllowed,
	ErrNoQuestionsAvailable,
	ErrNotFound,
	ErrAlreadyCompleted,
	ErrQuestionNotInAssignment,
	ErrLoginRequired,
}

// IsPrecondition reports whether err is a quiz-rule failure rather than a storage failure.
func IsPrecondition(err error) bool {
	for _, target := range preconditions {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// StorageError wraps a failed read or write against the assignment store.
type StorageError struct {
	Op           string
	AssignmentID string
	Err          error
}

func (e *StorageError) Error() string {
	if e.AssignmentID == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s (assignment %s): %v", e.Op, e.AssignmentID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it is nil or already a domain sentinel.
func Storage(op, assignmentID string, err error) error {
	if err == nil {
		return nil
	}
	if IsPrecondition(err) || errors.Is(err, ErrResultNotFound) || errors.Is(err, ErrQuestionNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, AssignmentID: assignmentID, Err: err}
}
