package Services

import (
	"errors"
	"regexp"

	"LiveSupport/Storage"
)

var (
	ErrMissingFields    = errors.New("all fields are required")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInvalidCategory  = errors.New("invalid service category")
	ErrInvalidStatus    = errors.New("invalid status value")
	ErrInvalidSender    = errors.New("invalid sender kind")
	ErrSessionNotFound  = errors.New("session not found or already ended")
	ErrSessionNotActive = errors.New("session is not active")

	// ErrNoAgentAvailable is a business outcome, not a failure: the caller
	// routes the customer to the ticket fallback.
	ErrNoAgentAvailable = Storage.ErrNoAgentAvailable
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
