package domain

import "errors"

// Category errors. Every specific error below unwraps to exactly one of these, so
// transports can classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	// ErrUnscoreable means no scoring strategy exists for a question type. It is a
	// deployment defect, not bad input.
	ErrUnscoreable = errors.New("no scoring strategy for question type")
	// ErrConflict is returned by stores when a concurrent write won.
	ErrConflict = errors.New("conflicting write")
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = newError("quiz not found", ErrNotFound)
	// ErrAttemptNotFound is returned for an unknown attempt id.
	ErrAttemptNotFound = newError("quiz attempt not found", ErrNotFound)
	// ErrQuestionNotFound indicates a question is not part of the attempt's quiz.
	ErrQuestionNotFound = newError("question not found", ErrNotFound)
	// ErrUserNotFound is returned when the user starting an attempt does not exist.
	ErrUserNotFound = newError("user not found", ErrNotFound)

	ErrQuizClosed       = newError("quiz is closed", ErrForbidden)
	ErrQuizNotAvailable = newError("quiz is outside its availability window", ErrForbidden)
	ErrNotAttemptOwner  = newError("attempt belongs to another user", ErrForbidden)

	// ErrAttemptSubmitted is returned for any mutation or resume of a finished attempt.
	ErrAttemptSubmitted = newError("quiz attempt already submitted", ErrInvalidState)
	// ErrAttemptInProgress is returned when a result is requested before submission.
	ErrAttemptInProgress = newError("quiz attempt is still in progress", ErrInvalidState)
	// ErrAttemptExpired is returned after the time limit forced a submission.
	ErrAttemptExpired = newError("quiz attempt time has expired", ErrInvalidState)
)

type categorizedError struct {
	msg      string
	category error
}

func newError(msg string, category error) error {
	return &categorizedError{msg: msg, category: category}
}

func (e *categorizedError) Error() string { return e.msg }

func (e *categorizedError) Unwrap() error { return e.category }
