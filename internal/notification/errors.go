package notification

import "errors"

// ErrChannelUnconfigured is returned when a send is attempted on a channel
// with no provider client configured.
var ErrChannelUnconfigured = errors.New("notification: channel not configured")
