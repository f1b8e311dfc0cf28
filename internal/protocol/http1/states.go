package http1

// The read loop advances through these states exactly once per request; a
// connection serves a single message and is then closed, so there is no way
// back to idle.
type state uint8

const (
	stateIdle state = iota
	stateReadingHeaders
	stateReadingBody
	stateComplete
)
