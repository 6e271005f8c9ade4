package types

// ConnectionState represents the lifecycle state of a coordinator session.
type ConnectionState int

const (
	// StateDisconnected is the initial and final state. No transport is
	// active and a new run may be started.
	StateDisconnected ConnectionState = iota
	// StateConnecting means the transport dial or a retry wait is in
	// progress.
	StateConnecting
	// StateConnected means the transport is established and the handshake
	// has been sent, but instruction processing has not started yet.
	StateConnected
	// StateRunning means the dispatch loop is consuming coordinator
	// instructions.
	StateRunning
	// StateStopping means a graceful stop was requested and the session is
	// winding down.
	StateStopping
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}
