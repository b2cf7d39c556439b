package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNoSelection  = errors.New("selection returned no valid market")
	ErrNotTradeable = errors.New("market not tradeable")
	ErrMissingToken = errors.New("missing outcome token id")
	ErrWSDisconnect = errors.New("websocket disconnected")
	ErrQueueFull    = errors.New("event queue full")
)
