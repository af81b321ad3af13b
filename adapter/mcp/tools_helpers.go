package mcp

import (
	"fmt"

	"github.com/google/uuid"
)

// parseUUID reads a required ID argument. Errors name the argument.
func parseUUID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return id, nil
}

// parseOptionalUUID reads an ID argument that may be omitted.
func parseOptionalUUID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return parseUUID(field, value)
}
