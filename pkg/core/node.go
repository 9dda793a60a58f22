package core

import (
	"encoding/json"
	"fmt"
)

// NodeKind identifies the role of a node in the pipeline graph.
type NodeKind string

// Node kind constants.
const (
	// KindLoad establishes the artifact the pipeline operates on.
	KindLoad NodeKind = "load"
	// KindOperator applies one remote image operation to the current artifact.
	KindOperator NodeKind = "operator"
	// KindSave persists the current artifact to a destination path.
	KindSave NodeKind = "save"
	// KindPreview fetches a preview reference for the current artifact.
	KindPreview NodeKind = "preview"
	// KindNote is a free-text annotation; it is never dispatched.
	KindNote NodeKind = "note"
)

// Valid reports whether k is one of the five node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindLoad, KindOperator, KindSave, KindPreview, KindNote:
		return true
	}
	return false
}

// Dispatchable reports whether nodes of this kind cause an external call.
// Only dispatchable nodes contribute to run progress.
func (k NodeKind) Dispatchable() bool {
	switch k {
	case KindOperator, KindSave, KindPreview:
		return true
	}
	return false
}

// Position is a node's 2-D canvas position. It carries no graph semantics;
// the scheduler uses it only to break ordering ties deterministically.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodePayload is the sealed union of per-kind node data.
// Exactly one concrete payload type exists per NodeKind.
type NodePayload interface {
	isNodePayload()
}

// LoadPayload names the artifact a load node establishes. An empty
// ArtifactID means "first available artifact in the session".
type LoadPayload struct {
	ArtifactID string `json:"artifact_id,omitempty"`
}

// OperatorPayload holds the operation an operator node dispatches.
type OperatorPayload struct {
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params,omitempty"`
}

// SavePayload holds the destination for a save node.
type SavePayload struct {
	Directory string `json:"directory,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Format    string `json:"format,omitempty"`
}

// PreviewPayload receives the preview reference produced during execution.
// The driver writes PreviewRef back onto the graph as a side effect.
type PreviewPayload struct {
	PreviewRef string `json:"preview_ref,omitempty"`
}

// NotePayload is the text of an annotation node.
type NotePayload struct {
	Text string `json:"text,omitempty"`
}

func (*LoadPayload) isNodePayload()     {}
func (*OperatorPayload) isNodePayload() {}
func (*SavePayload) isNodePayload()     {}
func (*PreviewPayload) isNodePayload()  {}
func (*NotePayload) isNodePayload()     {}

// Node is one step in a pipeline graph.
// ID is unique within a graph; Kind is immutable after creation.
type Node struct {
	ID       string
	Kind     NodeKind
	Position Position
	Disabled bool
	Data     NodePayload
}

// nodeJSON is the wire shape of a Node.
type nodeJSON struct {
	ID       string          `json:"id"`
	Kind     NodeKind        `json:"kind"`
	Position Position        `json:"position"`
	Disabled bool            `json:"disabled,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// MarshalJSON encodes the node with its kind-specific payload under "data".
func (n *Node) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeJSON{
		ID:       n.ID,
		Kind:     n.Kind,
		Position: n.Position,
		Disabled: n.Disabled,
		Data:     data,
	})
}

// UnmarshalJSON decodes the payload according to the node kind.
// Unknown kinds are rejected so structurally invalid documents fail early.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	payload, err := newPayload(raw.Kind)
	if err != nil {
		return fmt.Errorf("node %q: %w", raw.ID, err)
	}
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return fmt.Errorf("node %q: invalid %s payload: %w", raw.ID, raw.Kind, err)
		}
	}

	n.ID = raw.ID
	n.Kind = raw.Kind
	n.Position = raw.Position
	n.Disabled = raw.Disabled
	n.Data = payload
	return nil
}

// newPayload returns the zero payload for a node kind.
func newPayload(kind NodeKind) (NodePayload, error) {
	switch kind {
	case KindLoad:
		return &LoadPayload{}, nil
	case KindOperator:
		return &OperatorPayload{}, nil
	case KindSave:
		return &SavePayload{}, nil
	case KindPreview:
		return &PreviewPayload{}, nil
	case KindNote:
		return &NotePayload{}, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
}

// Validate checks structural integrity of a single node.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("node %q: unknown kind %q", n.ID, n.Kind)
	}
	if n.Data == nil {
		return fmt.Errorf("node %q: payload is required", n.ID)
	}
	if !payloadMatchesKind(n.Kind, n.Data) {
		return fmt.Errorf("node %q: payload does not match kind %q", n.ID, n.Kind)
	}
	if n.Kind == KindOperator {
		op := n.Data.(*OperatorPayload)
		if op.Operation == "" {
			return fmt.Errorf("node %q: operator node requires an operation name", n.ID)
		}
	}
	return nil
}

// payloadMatchesKind reports whether the concrete payload type is the one
// declared for the kind.
func payloadMatchesKind(kind NodeKind, p NodePayload) bool {
	switch p.(type) {
	case *LoadPayload:
		return kind == KindLoad
	case *OperatorPayload:
		return kind == KindOperator
	case *SavePayload:
		return kind == KindSave
	case *PreviewPayload:
		return kind == KindPreview
	case *NotePayload:
		return kind == KindNote
	}
	return false
}
