package domain

import "errors"

var (
	// ErrNoBusinessContext is fatal: there is no meaningful research
	// context without a business identity.
	ErrNoBusinessContext = errors.New("business profile not found for job")

	// ErrBudgetExceeded is returned before any generation attempt when the
	// running cost total has already passed the configured limit.
	ErrBudgetExceeded = errors.New("generation budget exceeded")

	// ErrNoSectionsGenerated is the only hard failure of document
	// assembly; every other gate outcome still returns content.
	ErrNoSectionsGenerated = errors.New("no sections were generated")
)
