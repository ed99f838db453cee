package bootstrap

import (
	"bytes"
	"context"
	"testing"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/provenance/internal/sqldb"
	"github.com/mesh-intelligence/provenance/internal/store"
	"github.com/mesh-intelligence/provenance/internal/workspace"
)

func TestBuildContainer(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	top := t.TempDir()
	_, err := workspace.Init(context.Background(), top, workspace.InitOptions{Project: "lab", Owner: "alice"}, nil)
	require.NoError(t, err)

	var logs bytes.Buffer
	inj := BuildContainer(top, &logs)

	mirror, err := do.Invoke[store.Mirror](inj)
	require.NoError(t, err)
	assert.Nil(t, mirror, "no bucket configured")

	w, err := do.Invoke[*workspace.Workspace](inj)
	require.NoError(t, err)
	p, err := w.Project(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "lab", p.Name)

	backend := do.MustInvoke[*sqldb.Backend](inj)
	require.NoError(t, inj.Shutdown())
	assert.False(t, backend.Attached())
}

func TestBuildContainer_S3Mirror(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PROV_STORE_MIRROR_S3_BUCKET", "objects")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	inj := BuildContainer(t.TempDir(), &bytes.Buffer{})
	mirror, err := do.Invoke[store.Mirror](inj)
	require.NoError(t, err)
	assert.NotNil(t, mirror)
}
