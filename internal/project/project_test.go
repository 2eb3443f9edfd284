package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-ai/appforge/internal/storage"
	"github.com/appforge-ai/appforge/pkg/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(storage.New(t.TempDir()))
}

func TestState_EmptyForUnknownSession(t *testing.T) {
	svc := newTestService(t)

	state, err := svc.State(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", state.SessionID)
	assert.Empty(t, state.Phase)
	assert.False(t, state.Deployed)
}

func TestRecord_PhaseLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdatePhaseImplementing, map[string]any{"phase": "ui"}))
	state, err := svc.State(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "ui", state.Phase)
	assert.False(t, state.PhaseDone)

	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdatePhaseImplemented, nil))
	state, err = svc.State(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "ui", state.Phase)
	assert.True(t, state.PhaseDone)
	assert.NotZero(t, state.Updated)
}

func TestRecord_FileRegeneration(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdateFileRegenerating, map[string]any{"file": "src/App.tsx"}))
	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdateFileRegenerating, map[string]any{"file": "src/App.tsx"}))
	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdateFileRegenerating, map[string]any{"file": "index.html"}))

	state, err := svc.State(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App.tsx", "index.html"}, state.RegeneratingFiles)

	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdateFileRegenerated, map[string]any{"file": "src/App.tsx"}))
	state, err = svc.State(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html"}, state.RegeneratingFiles)
}

func TestRecord_UnknownKind(t *testing.T) {
	svc := newTestService(t)
	err := svc.Record(context.Background(), "agent-1", types.ProjectUpdateKind("database_migrated"), nil)
	assert.Error(t, err)
}

func TestProjectContext_Rendering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdatePhaseImplementing, map[string]any{"phase": "api"}))
	require.NoError(t, svc.Record(ctx, "agent-1", types.UpdateDeploymentCompleted, nil))

	full, err := svc.ProjectContext(ctx, "agent-1", false)
	require.NoError(t, err)
	assert.Contains(t, full, "Current phase: api")
	assert.Contains(t, full, "Deployed: true")

	short, err := svc.ProjectContext(ctx, "agent-1", true)
	require.NoError(t, err)
	assert.Contains(t, short, "Phase: api")
}

func TestProjectContext_FreshSession(t *testing.T) {
	svc := newTestService(t)

	full, err := svc.ProjectContext(context.Background(), "agent-1", false)
	require.NoError(t, err)
	assert.Contains(t, full, "not started")
}
