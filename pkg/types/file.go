package types

import (
	"time"

	"github.com/google/uuid"
)

// FileRecord is a snapshot of one file mapping joined with its content
// record. Hash, Size, Name, Creator, Owner, CTime and Metadata belong to the
// content record shared by every experiment mapping the same hash; Role and
// Path belong to the mapping of Experiment.
type FileRecord struct {
	Experiment uuid.UUID  `json:"experiment"`
	Hash       Hash       `json:"hash"`
	Size       int64      `json:"size"`
	Name       *string    `json:"name,omitempty"`    // Original file name.
	Creator    *uuid.UUID `json:"creator,omitempty"` // Experiment that first registered it as output.
	Owner      *string    `json:"owner,omitempty"`
	CTime      *time.Time `json:"ctime,omitempty"`
	Metadata   *string    `json:"metadata,omitempty"`
	Role       Role       `json:"role"`
	Path       *string    `json:"path,omitempty"` // Relative to the workspace top directory.
}

// FileTree is a node of a lineage walk. Children of an output are the inputs
// of the same experiment; children of an input are the other inputs of its
// creator experiment.
type FileTree struct {
	Node     FileRecord `json:"node"`
	Children []FileTree `json:"children,omitempty"`
}

// Count returns the number of nodes in the tree.
func (t FileTree) Count() int {
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *s, or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
