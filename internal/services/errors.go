// Package services defines the business logic for the product catalogue,
// the cache refresh pipeline, editorial posts and lead capture. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Catalogue-related errors.
var (
	// ErrCategoryNotFound indicates that the requested category does not
	// exist or is not publicly visible.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrProductNotFound indicates that the requested product does not exist
	// or is no longer active.
	ErrProductNotFound = errors.New("product not found")

	// ErrPostNotFound indicates that the requested post does not exist or is
	// not published.
	ErrPostNotFound = errors.New("post not found")

	// ErrEmptyQuery is returned when a search request carries a blank query.
	ErrEmptyQuery = errors.New("search query is empty")
)

// Refresh pipeline errors.
var (
	// ErrRefreshRunning is returned when a manual refresh is requested while
	// a sweep for the same tier is already in flight.
	ErrRefreshRunning = errors.New("refresh already running")

	// ErrUnknownTier is returned when a refresh request names a tier the
	// pipeline does not know.
	ErrUnknownTier = errors.New("unknown refresh tier")
)

// Lead capture errors.
var (
	// ErrInvalidLead is returned when a submitted lead is missing required
	// contact or routing fields.
	ErrInvalidLead = errors.New("lead is missing required fields")
)
