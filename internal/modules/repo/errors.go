package repo

import "errors"

var (
	// ErrNoCardAvailable means the project's unclaimed pool is empty. This is
	// an expected terminal state, not a storage fault.
	ErrNoCardAvailable = errors.New("no unclaimed card available")

	// ErrCardClaimed means the conditional claim update matched zero rows: a
	// concurrent request won the race on that specific card.
	ErrCardClaimed = errors.New("card already claimed")

	// ErrDuplicateClaim means the ledger's uniqueness constraint rejected a
	// second claim for the same (project, claimant) pair.
	ErrDuplicateClaim = errors.New("claim already recorded for this identity")
)
