package deal

import "errors"

var (
	// ErrStoneUnavailable means the stone is missing or already claimed by
	// another open deal. Reported to the requester; never retried.
	ErrStoneUnavailable = errors.New("stone is not available")

	// ErrNotOwner means the caller has no rights over the deal.
	ErrNotOwner = errors.New("caller does not own this deal")

	// ErrAlreadyFinal means the deal reached COMPLETED or CLOSED and cannot
	// change further.
	ErrAlreadyFinal = errors.New("deal is already final")

	// ErrInvalidPrecondition means the deal is not in the state the requested
	// transition requires.
	ErrInvalidPrecondition = errors.New("deal state does not permit this transition")

	// ErrInvalidDecision means the decision value is not one the state
	// machine knows.
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrNotFound means no deal exists with the given id.
	ErrNotFound = errors.New("deal not found")
)
