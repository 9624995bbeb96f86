package models

import "github.com/pkg/errors"

// Failure taxonomy. Persistence errors abort the status-change call; publish
// and sink errors are logged at the point of use and never propagate.
var (
	ErrNotFound          = errors.New("package not found")
	ErrPersistence       = errors.New("persistence unavailable")
	ErrPublish           = errors.New("broadcast publish failed")
	ErrSink              = errors.New("notification sink failed")
	ErrAuthorization     = errors.New("not authorized for topic")
	ErrMalformedMessage  = errors.New("malformed client message")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Sink failure kinds, wrapped around ErrSink by the notifier integration.
var (
	ErrSinkUnavailable  = errors.Wrap(ErrSink, "sink unavailable")
	ErrRecipientInvalid = errors.Wrap(ErrSink, "recipient invalid")
	ErrTemplateError    = errors.Wrap(ErrSink, "template error")
)
