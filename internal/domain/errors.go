package domain

import "errors"

var (
	ErrNoEndpointAvailable   = errors.New("no rpc endpoint available")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNormalization         = errors.New("cannot normalize venue data")
	ErrWSDisconnect          = errors.New("websocket disconnected")
)
