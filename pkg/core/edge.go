package core

import "fmt"

// Socket name constants for the common edge payload types.
// Socket names are free-form; these cover the built-in node kinds.
const (
	SocketImage  = "image"
	SocketMask   = "mask"
	SocketNumber = "number"
	SocketString = "string"
)

// Edge is a directed dependency between two nodes' named sockets.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceSocket string `json:"source_socket,omitempty"`
	Target       string `json:"target"`
	TargetSocket string `json:"target_socket,omitempty"`
}

// Validate checks structural integrity of a single edge in isolation.
// Endpoint existence is checked by the owning graph.
func (e *Edge) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("edge id is required")
	}
	if e.Source == "" || e.Target == "" {
		return fmt.Errorf("edge %q: source and target node ids are required", e.ID)
	}
	return nil
}
