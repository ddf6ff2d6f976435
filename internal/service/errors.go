package service

import (
	"errors"
	"fmt"
)

// Trigger and lookup failures surfaced to callers. Per-asset and
// orphan-phase failures are never returned as errors; they are absorbed
// into the ledger and audit trail so a single bad asset cannot abort a
// run.
var (
	// ErrRunActive is returned by Trigger when another run is RUNNING.
	ErrRunActive = errors.New("a sync run is already active")

	// ErrRunNotFound is returned for lookups of unknown run ids.
	ErrRunNotFound = errors.New("sync run not found")
)

// ConfigError marks a prerequisite failure that aborts a run before
// any asset is touched (missing album selection, unresolvable
// destination container).
type ConfigError struct {
	Stage string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration error: %s", e.Stage)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Stage, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
