package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNoCredential = errors.New("api credentials not configured")
	ErrWSDisconnect = errors.New("websocket disconnected")
)
