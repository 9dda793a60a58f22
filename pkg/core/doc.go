// Package core defines the shared language of the LumaGraph system.
//
// This package contains:
//   - Domain entities (Node, Edge, Run, OperationSpec)
//   - Service interfaces (Backend, Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
