package model

import "errors"

// Error taxonomy shared by all components. Wrap with fmt.Errorf("...: %w").
var (
	// ErrUpstreamUnavailable covers network, auth and non-2xx failures of an oracle or API
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse covers payloads missing expected fields or patterns
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrUnrecognizedInput is a user answer the current step cannot accept
	ErrUnrecognizedInput = errors.New("unrecognized input")

	// ErrReportIncomplete is returned when completed-only data is requested early
	ErrReportIncomplete = errors.New("report is not complete")

	// ErrReviewActive means the moderator already owns a review session
	ErrReviewActive = errors.New("moderator already has an active review")
)
