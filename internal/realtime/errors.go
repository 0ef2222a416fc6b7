package realtime

import "errors"

var (
	ErrNotConnected       = errors.New("realtime channel not connected")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrHandshake          = errors.New("realtime handshake failed")
	ErrUnknownEvent       = errors.New("unknown event")
)
