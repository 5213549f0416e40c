package core

import "time"

// Event is the interface for all host events.
type Event interface {
	eventMarker()
}

// HandlePublished is emitted when a handle is published to the boundary.
type HandlePublished struct {
	Metadata  Metadata
	Timestamp time.Time
}

func (*HandlePublished) eventMarker() {}

// HandleReleased is emitted once per handle, whichever path released it.
type HandleReleased struct {
	Handle    string
	Reason    ReleaseReason
	Timestamp time.Time
}

func (*HandleReleased) eventMarker() {}

// InvocationCompleted is emitted when a boundary call returns successfully.
type InvocationCompleted struct {
	Handle    string
	Duration  time.Duration
	Timestamp time.Time
}

func (*InvocationCompleted) eventMarker() {}

// InvocationFailed is emitted when a boundary call fails for any reason.
type InvocationFailed struct {
	Handle    string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

func (*InvocationFailed) eventMarker() {}
