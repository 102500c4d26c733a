package notify

import "errors"

// Contact errors are terminal for a reminder: the dispatch poll only selects
// pending rows, so a failed reminder is never retried by the pipeline.
var (
	// ErrMissingEmail means the reminder requires email delivery but the
	// student record has no email address.
	ErrMissingEmail = errors.New("no email address on file")

	// ErrMissingPhone means the reminder requires SMS delivery but the
	// student record has no phone number.
	ErrMissingPhone = errors.New("no phone number on file")

	// ErrNoChannelAvailable means a both-channel reminder found neither an
	// email address nor a phone number. Distinct from provider failures so
	// callers can branch without inspecting message text.
	ErrNoChannelAvailable = errors.New("no delivery channel available")
)
