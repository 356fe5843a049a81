package memory

import "fmt"

// StorageError wraps a failure against one of the two backing stores.
type StorageError struct {
	Store      string // "primary", "secondary", or "index"
	Collection string
	Op         string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store: %s %s: %v", e.Store, e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// SyncError reports a reconciliation pass that could not complete. Per-
// document failures are skipped and counted instead of raised.
type SyncError struct {
	Mode string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("reconcile (%s): %v", e.Mode, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
