package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("create file: %w", &Error{
		Kind:   ErrStorage,
		Entity: "file",
		Key:    "abc",
		Err:    cause,
	})

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ErrStorage, Kind(err))
	assert.Equal(t, "create file: file abc: storage error: disk full", err.Error())
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"not found", NotFound("project", "lab1"), ErrNotFound, "project lab1: not found"},
		{"conflict", Conflict("experiment", "run1", "name already used"), ErrConflict, "experiment run1: conflict: name already used"},
		{"integrity", Integrity("file", "ab", "output is used"), ErrIntegrityViolation, "file ab: integrity violation: output is used"},
		{"invalid", InvalidArgument("file", "size must be positive"), ErrInvalidArgument, "file: invalid argument: size must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.Equal(t, tt.kind, Kind(tt.err))
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}

	assert.Nil(t, Kind(errors.New("plain")))
}
