package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUserCacheMiss means a lookup for a user that should exist came back
	// empty. After Populate the cache holds every user, so a miss is an
	// invariant violation, not a load-on-demand situation.
	ErrUserCacheMiss = errors.New("user missing from attribute cache")

	// ErrCacheNotPopulated is returned by lookups before Populate has run.
	// Seeing it means the boot ordering contract was broken.
	ErrCacheNotPopulated = errors.New("user attribute cache not populated")
)
