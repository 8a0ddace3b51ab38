package domain

import "errors"

// ErrNoOrderGap indicates that two neighboring display orders are adjacent
// integers and a value cannot be allocated between them. Callers react by
// renumbering the affected day bucket; the condition is never silently
// corrected here.
var ErrNoOrderGap = errors.New("no display-order gap between neighbors")

// ErrConcurrencyConflict indicates that the underlying storage rejected an
// update because a newer version of the entity is already persisted.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrTaskNotFound indicates that the referenced task does not exist in the
// store for the given user.
var ErrTaskNotFound = errors.New("task not found")

// ErrSameDayRollover indicates a rollover was requested where source and
// destination resolve to the same civil day.
var ErrSameDayRollover = errors.New("rollover source and destination are the same civil day")
