// Package services implements the access-policy use cases on top of the
// repositories: the domain catalog cache, daily quota status, the policy
// check, heartbeat aggregation, time grants, rule management, and reports.
//
// This file centralizes the service-level error values. Translation into
// HTTP status codes is performed by the handler layer.
package services

import "errors"

var (
	// ErrInvalidInput is returned for malformed URLs, unknown rule statuses,
	// negative durations, and similar caller mistakes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the parent does not own the addressed child.
	ErrForbidden = errors.New("forbidden")

	// ErrAuthenticationFailed is returned when a parent re-authentication
	// (password confirmation) fails.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrChildNotFound indicates that the child does not exist.
	ErrChildNotFound = errors.New("child not found")

	// ErrRuleNotFound is returned when deleting a rule that does not exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrCategoryNotFound is returned when a category name is unknown.
	ErrCategoryNotFound = errors.New("category not found")
)
