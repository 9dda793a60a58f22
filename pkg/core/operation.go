package core

// ParamType identifies the control type of an operation parameter.
type ParamType string

// Parameter type constants, mirroring the backend's parameter contract.
const (
	ParamFloat  ParamType = "float"
	ParamInt    ParamType = "int"
	ParamBool   ParamType = "bool"
	ParamSelect ParamType = "select"
	ParamRange  ParamType = "range"
	ParamString ParamType = "string"
)

// SelectOption is one choice of a select parameter.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ParamSpec describes one parameter of an operation. The populated fields
// depend on Type; unused fields stay at their zero value.
type ParamSpec struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Type        ParamType `json:"type"`

	// float/int/string/select
	Default any `json:"default,omitempty"`

	// float/int/range bounds
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Step float64 `json:"step,omitempty"`

	// select
	Options []SelectOption `json:"options,omitempty"`

	// range
	DefaultLow  float64 `json:"default_low,omitempty"`
	DefaultHigh float64 `json:"default_high,omitempty"`
}

// OperationSpec is the full description of one remote operation, exposed by
// the backend to drive parameter validation and UI generation.
type OperationSpec struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	Params      []ParamSpec `json:"params,omitempty"`
}

// Step is one entry of a linear batch pipeline: an operation applied with
// fixed parameters. Inactive steps are skipped.
type Step struct {
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params,omitempty"`
	Active    bool           `json:"active"`
}
