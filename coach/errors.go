package coach

import "errors"

// Sentinel errors shared by the store, the orchestrator and the API.
var (
	// ErrProfileRequired is returned when an operation needs a profile and none exists.
	ErrProfileRequired = errors.New("no user profile found, create a profile first")

	// ErrPlanNotFound is returned when no plan exists for the requested week.
	ErrPlanNotFound = errors.New("no plan found")

	// ErrInvalid marks malformed records and field values.
	ErrInvalid = errors.New("invalid record")
)
