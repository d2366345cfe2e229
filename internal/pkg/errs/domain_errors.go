package errs

import "errors"

// Domain-specific sentinel errors for the automation core
var (
	// Scheduler errors
	ErrTaskNotFound      = errors.New("scheduled task not found")
	ErrTaskAlreadyExists = errors.New("scheduled task already registered")
	ErrSchedulerStopped  = errors.New("scheduler is stopped")

	// Job queue errors
	ErrJobNotFound    = errors.New("job not found")
	ErrUnknownJobKind = errors.New("unknown job kind")

	// Watch errors
	ErrWatchNotFound = errors.New("price watch not found")
	ErrWatchInactive = errors.New("price watch is inactive")

	// Notification errors
	ErrNoEligibleChannel = errors.New("no eligible notification channel")
	ErrChannelSendFailed = errors.New("channel send failed")

	// Validation errors
	ErrDomainValidation = errors.New("domain validation error")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
