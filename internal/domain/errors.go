package domain

import "errors"

// Domain errors
var (
	ErrUnauthorized           = errors.New("no resolvable actor identity")
	ErrPlayerNotFound         = errors.New("player not found")
	ErrSessionNotFound        = errors.New("game session not found")
	ErrChallengeNotFound      = errors.New("challenge not found")
	ErrRecordNotFound         = errors.New("player record not found")
	ErrInsufficientPoints     = errors.New("not enough points")
	ErrNoChargesRemaining     = errors.New("no charges remaining for this lifeline")
	ErrInvalidTarget          = errors.New("invalid lifeline target")
	ErrConcurrentModification = errors.New("record changed concurrently, retry the operation")
	ErrHandleTaken            = errors.New("handle already taken")
	ErrHandleAlreadySet       = errors.New("handle already assigned")
	ErrForbidden              = errors.New("operation requires gamemaster role")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInternalError          = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}
