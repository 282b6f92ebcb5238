package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrBatchNotFound       = errors.New("batch not found")
	ErrHealthScoreNotFound = errors.New("health score not found")
	ErrCacheMiss           = errors.New("verification cache miss")
	ErrCredentialNotFound  = errors.New("credential usage record not found")
	ErrNoActiveCredentials = errors.New("no active credentials available")
	ErrSelfLink            = errors.New("invoice cannot be linked to itself")
	ErrAlreadyLinked       = errors.New("invoice is already linked as a duplicate")
	ErrInvalidTaxID        = errors.New("tax ID must be exactly 15 characters")
	ErrRegistryUnavailable = errors.New("registry verification service unavailable")
	ErrRegistryRejected    = errors.New("registry rejected the verification request")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrTooManyFiles        = errors.New("bulk upload exceeds maximum file count")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrInvoiceStillPending = errors.New("invoice is still being processed")
	ErrMissingLineItems    = errors.New("at least one line item is required")
)
