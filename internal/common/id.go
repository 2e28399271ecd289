package common

import (
	"github.com/google/uuid"
)

// NewEntryID generates a unique knowledge entry ID with the "ent_" prefix
// Format: ent_<uuid>
func NewEntryID() string {
	return "ent_" + uuid.New().String()
}

// NewConnectorID generates a unique connector ID with the "con_" prefix
func NewConnectorID() string {
	return "con_" + uuid.New().String()
}

// NewInteractionID generates a unique interaction ID with the "int_" prefix
func NewInteractionID() string {
	return "int_" + uuid.New().String()
}
