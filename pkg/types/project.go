package types

import (
	"time"

	"github.com/google/uuid"
)

// Project is a top-level named container for experiments.
type Project struct {
	UUID     uuid.UUID  `json:"uuid"`               // UUID v7, generated on creation.
	Name     string     `json:"name"`               // Globally unique.
	Metadata *string    `json:"metadata,omitempty"` // Short description ("abstract").
	Owner    *string    `json:"owner,omitempty"`
	CTime    *time.Time `json:"ctime,omitempty"`
	Journal  string     `json:"journal,omitempty"`
}
