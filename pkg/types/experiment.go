package types

import (
	"time"

	"github.com/google/uuid"
)

// Experiment is a named unit of work within a project.
type Experiment struct {
	UUID     uuid.UUID  `json:"uuid"`
	Project  uuid.UUID  `json:"project"`
	Name     string     `json:"name"` // Unique within Project.
	Metadata *string    `json:"metadata,omitempty"`
	Owner    *string    `json:"owner,omitempty"`
	CTime    *time.Time `json:"ctime,omitempty"`
	Journal  string     `json:"journal,omitempty"`

	// Locked is stored and returned but no operation consults it.
	Locked bool `json:"locked"`
}
