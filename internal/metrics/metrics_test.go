package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{types.NotFound("file", "x"), OutcomeNotFound},
		{types.Conflict("project", "lab1", "name already used"), OutcomeConflict},
		{types.Integrity("file", "x", "used"), OutcomeIntegrity},
		{types.InvalidArgument("file", "size"), OutcomeInvalid},
		{types.ErrStorage, OutcomeStorage},
		{errors.New("disk full"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.Observe("file.add", 20*time.Millisecond, nil)
	r.Observe("file.add", 5*time.Millisecond, types.NotFound("file", "x"))

	done := r.Start("verify")
	var err error
	done(&err)

	path := filepath.Join(t.TempDir(), "prov.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `prov_operations_total{operation="file.add",outcome="ok"} 1`)
	assert.Contains(t, text, `prov_operations_total{operation="file.add",outcome="not_found"} 1`)
	assert.Contains(t, text, `prov_operations_total{operation="verify",outcome="ok"} 1`)
	assert.Contains(t, text, `prov_operation_duration_seconds_count{operation="file.add"} 2`)
}

func TestRecorder_StartRecordsError(t *testing.T) {
	r := New()
	fail := func() (err error) {
		defer r.Start("project.remove")(&err)
		return types.Integrity("project", "lab1", "experiments still reference it")
	}
	require.Error(t, fail())

	families, err := r.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "prov_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == OutcomeIntegrity {
					found = true
					assert.Equal(t, float64(1), m.GetCounter().GetValue())
				}
			}
		}
	}
	assert.True(t, found)
}
