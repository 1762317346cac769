package requests

import (
	"github.com/brettbedarf/fileguard"
)

// OpType is the discriminator of a script operation
type OpType string

const (
	OpBegin  OpType = "begin"  // TryBeginAccess
	OpEnd    OpType = "end"    // EndAccess
	OpDelete OpType = "delete" // TrySafeDelete
	OpSweep  OpType = "sweep"  // ProcessPendingDeletions
	OpClear  OpType = "clear"  // ClearDeletedRecords
	OpStatus OpType = "status" // state of one path, or Stats without a path
)

func (t OpType) needsPath() bool {
	switch t {
	case OpBegin, OpEnd, OpDelete:
		return true
	}
	return false
}

func (t OpType) known() bool {
	switch t {
	case OpBegin, OpEnd, OpDelete, OpSweep, OpClear, OpStatus:
		return true
	}
	return false
}

// OperationDTO is the JSON/YAML representation of [Operation]
type OperationDTO struct {
	Op       OpType                  `json:"op" yaml:"op"`
	ID       *string                 `json:"id,omitempty" yaml:"id,omitempty"` // Optional id echoed in results (Default random uuid)
	Path     string                  `json:"path,omitempty" yaml:"path,omitempty"`
	Intent   *fileguard.AccessIntent `json:"intent,omitempty" yaml:"intent,omitempty"`     // begin only (Default read)
	Category *fileguard.FileCategory `json:"category,omitempty" yaml:"category,omitempty"` // begin only (Default cache_file)
	// Force bypasses the sweep rate limit
	Force *bool `json:"force,omitempty" yaml:"force,omitempty"`
}

// ScriptDTO is the document form of a script file. A bare list of operations
// is accepted too.
type ScriptDTO struct {
	Operations []OperationDTO `json:"operations" yaml:"operations"`
}

// Operation is a single validated step of a script with defaults applied
type Operation struct {
	ID       string
	Op       OpType
	Path     string
	Intent   fileguard.AccessIntent
	Category fileguard.FileCategory
	Force    bool
}
