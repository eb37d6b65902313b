package swlink

import "errors"

// ErrNotConnected is returned by Send when the link has no live
// connection to the switch.
var ErrNotConnected = errors.New("swlink: not connected")
