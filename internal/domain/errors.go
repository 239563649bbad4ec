package domain

import "errors"

var (
	ErrRunNotFound        = errors.New("run not found")
	ErrCheckpointInvalid  = errors.New("checkpoint references missing or empty artifacts")
	ErrSequenceRegression = errors.New("checkpoint sequence number did not advance")
	ErrAllLigandsRemoved  = errors.New("all ligands removed during washing")
	ErrNoLigandsDocked    = errors.New("wrapper accepted no ligand poses")
	ErrDockingExhausted   = errors.New("docking retries exhausted")
	ErrConfiguration      = errors.New("invalid configuration")

	// ErrToolTransient wraps external tool failures that are worth retrying
	// with adjusted parameters, as opposed to configuration mistakes that
	// will fail the same way every time.
	ErrToolTransient = errors.New("transient tool failure")
)
