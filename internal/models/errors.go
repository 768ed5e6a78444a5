package models

import "errors"

// Domain errors returned by repositories and services. Handlers map these to
// HTTP status codes; everything else surfaces as an internal error.
var (
	// ErrNotFound covers missing records and records the caller has no
	// relationship to, so that unauthorized probing cannot confirm existence.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized indicates the actor is related to the record but lacks
	// permission for the attempted action.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidTransition indicates a status change from a non-pending
	// state, including a lost compare-and-swap race.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateRequest indicates a pending request already exists for the
	// same (sender, receiver, project) triple.
	ErrDuplicateRequest = errors.New("duplicate collaboration request")

	// ErrEntitlementDenied indicates the actor's subscription tier does not
	// permit the action.
	ErrEntitlementDenied = errors.New("subscription tier does not permit this action")
)
