package main

import (
	"context"
	"errors"
)

// ErrAlerterNotConfigured is returned when an alerter operation is attempted
// but the alerter has not been properly configured or initialized.
var ErrAlerterNotConfigured = errors.New("alerter not configured")

// ErrAlerterRateLimited is returned when an alerter has been rate limited
// and cannot send additional alerts until the rate limit period has passed.
var ErrAlerterRateLimited = errors.New("alerter rate limited")

// ErrAlerterDropped is returned when an alert message cannot be successfully
// delivered by the alerter, for example when a downstream delivery mechanism
// (such as a webhook) returns a non-2xx HTTP response.
var ErrAlerterDropped = errors.New("alerter message dropped")

// Alerter defines an interface for delivering alert notifications when the
// processor detects an outage or a recovery. Implementations handle one
// delivery channel each (webhook, email, ...).
type Alerter interface {
	// Send delivers one alert notification. The context ctx can be used to
	// control the request lifetime and cancellation.
	// Returns an error if the notification fails to send.
	Send(ctx context.Context, alert AlertMessage) error
}
