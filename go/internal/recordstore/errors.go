package recordstore

import "errors"

var (
	// ErrNotFound is returned when no record exists for a code.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Create when the code is already taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrCreateFailed wraps transient failures while creating a record.
	ErrCreateFailed = errors.New("create failed")
	// ErrPatchFailed wraps transient failures while patching a record.
	ErrPatchFailed = errors.New("patch failed")
)
