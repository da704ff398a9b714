package services

import "github.com/pkg/errors"

// Error taxonomy shared by the service layer. Handlers map these onto HTTP
// statuses with errors.Is; everything else is treated as an internal error.
var (
	// ErrNotInstalled means the shop has no stored credential. Recoverable by
	// the merchant through the reinstall flow.
	ErrNotInstalled = errors.New("app not installed for this shop")

	// ErrInvalidInput means a required field is missing or malformed. Never
	// retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable means the backing store could not be reached or
	// rejected the operation before validation of the write itself.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrPersistenceFailure means a write was rejected after validation
	// passed. Surfaced to the caller, never retried automatically.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrNotFound means an update targeted a record that does not exist.
	ErrNotFound = errors.New("record not found")
)
