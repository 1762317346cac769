package requests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/fileguard"
)

// ErrInvalidOperation is returned for script steps that cannot be executed
var ErrInvalidOperation = errors.New("invalid operation")

// Format of a script document
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the script format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown script file extension: %s", path)
	}
}

// UnmarshalOperation decodes and validates a single JSON operation, as
// streamed one per line to "fileguard replay -"
func UnmarshalOperation(data []byte) (*Operation, error) {
	var dto OperationDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	op, err := convertOperationDTO(dto)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// UnmarshalScript decodes a script given either as a bare list of operations
// or as a document with an "operations" key. Any invalid step fails the whole
// script and is reported with its index.
func UnmarshalScript(data []byte, format Format) ([]Operation, error) {
	dtos, err := decodeScript(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal script: %w", err)
	}

	ops := make([]Operation, 0, len(dtos))
	for i, dto := range dtos {
		op, err := convertOperationDTO(dto)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// LoadScriptFile reads and decodes a script file, choosing the format by extension
func LoadScriptFile(path string) ([]Operation, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalScript(data, format)
}

func decodeScript(data []byte, format Format) ([]OperationDTO, error) {
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []OperationDTO
			err := json.Unmarshal(trimmed, &list)
			return list, err
		}
		var doc ScriptDTO
		err := json.Unmarshal(trimmed, &doc)
		return doc.Operations, err
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			return nil, nil
		}
		root := node.Content[0]
		if root.Kind == yaml.SequenceNode {
			var list []OperationDTO
			err := root.Decode(&list)
			return list, err
		}
		var doc ScriptDTO
		err := root.Decode(&doc)
		return doc.Operations, err
	default:
		return nil, fmt.Errorf("unknown script format: %d", int(format))
	}
}

// Conversion logic with defaults in the unmarshaling layer
func convertOperationDTO(dto OperationDTO) (Operation, error) {
	if !dto.Op.known() {
		return Operation{}, fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, dto.Op)
	}
	if dto.Op.needsPath() && strings.TrimSpace(dto.Path) == "" {
		return Operation{}, fmt.Errorf("%w: %s requires a path", ErrInvalidOperation, dto.Op)
	}

	return Operation{
		ID:       valueOrDefault(dto.ID, uuid.New().String()),
		Op:       dto.Op,
		Path:     dto.Path,
		Intent:   valueOrDefault(dto.Intent, fileguard.IntentRead),
		Category: valueOrDefault(dto.Category, fileguard.CacheFile),
		Force:    valueOrDefault(dto.Force, false),
	}, nil
}

func valueOrDefault[T any](ptr *T, defaultVal T) T {
	if ptr != nil {
		return *ptr
	}
	return defaultVal
}
