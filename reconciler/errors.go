package reconciler

import "fmt"

// ValidationError is a malformed or incomplete lifecycle event.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// LookupError means the endpoint could not be resolved to exactly one
// descriptor with an interface list.
type LookupError struct {
	VpcEndpointID string
	Message       string
}

func (e *LookupError) Error() string { return e.Message }

// ResolutionError means the interfaces could not all be resolved to a
// private IP.
type ResolutionError struct {
	NetworkInterfaceID string
	Message            string
}

func (e *ResolutionError) Error() string { return e.Message }

// ConfigurationError means the number of resolved IPs does not match the
// number of target slots the template declared.
type ConfigurationError struct {
	Slots    int
	Resolved int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("Expected %d target slots, resolved %d network interface IPs", e.Slots, e.Resolved)
}
