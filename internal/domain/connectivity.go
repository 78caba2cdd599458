package domain

import "context"

// Connectivity exposes device and backend reachability.
type Connectivity interface {
	IsOnline() bool
	BackendOnline() bool

	// ProbeConnectivity schedules a lightweight reachability check. It never blocks.
	ProbeConnectivity()

	ReportBackendReachable(reachable bool)
}

// URLOpener hands a checkout or app link to the platform. It must not block
// on the user completing the flow.
type URLOpener interface {
	Open(ctx context.Context, rawURL string)
}
