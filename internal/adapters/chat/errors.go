package chat

import "errors"

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("discord token is required")
