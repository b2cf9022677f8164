package client

import "errors"

// ErrClientNotFound is returned when no client matches the given client_id
var ErrClientNotFound = errors.New("client not found")
