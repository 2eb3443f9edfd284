package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-ai/appforge/internal/apperr"
)

func TestMemoryGate_AllowsUnderLimit(t *testing.T) {
	gate := NewMemoryGate()
	policy := Policy{Name: "session_creation", Limit: 3, Window: time.Hour}

	for i := 0; i < 3; i++ {
		assert.NoError(t, gate.Enforce(context.Background(), policy, "user-1"))
	}
}

func TestMemoryGate_RejectsOverLimit(t *testing.T) {
	gate := NewMemoryGate()
	policy := Policy{Name: "session_creation", Limit: 2, Window: time.Hour}

	require.NoError(t, gate.Enforce(context.Background(), policy, "user-1"))
	require.NoError(t, gate.Enforce(context.Background(), policy, "user-1"))

	err := gate.Enforce(context.Background(), policy, "user-1")
	require.Error(t, err)

	var quota *apperr.QuotaExceededError
	assert.ErrorAs(t, err, &quota)
	assert.Contains(t, quota.Reason, "limit of 2")
}

func TestMemoryGate_UsersAreIndependent(t *testing.T) {
	gate := NewMemoryGate()
	policy := Policy{Name: "session_creation", Limit: 1, Window: time.Hour}

	require.NoError(t, gate.Enforce(context.Background(), policy, "user-1"))
	assert.NoError(t, gate.Enforce(context.Background(), policy, "user-2"))
	assert.Error(t, gate.Enforce(context.Background(), policy, "user-1"))
}

func TestMemoryGate_WindowExpires(t *testing.T) {
	gate := NewMemoryGate()
	current := time.Now()
	gate.now = func() time.Time { return current }

	policy := Policy{Name: "session_creation", Limit: 1, Window: time.Hour}
	require.NoError(t, gate.Enforce(context.Background(), policy, "user-1"))
	require.Error(t, gate.Enforce(context.Background(), policy, "user-1"))

	current = current.Add(61 * time.Minute)
	assert.NoError(t, gate.Enforce(context.Background(), policy, "user-1"))
}

func TestMemoryGate_ZeroLimitDisables(t *testing.T) {
	gate := NewMemoryGate()
	policy := Policy{Name: "session_creation", Limit: 0, Window: time.Hour}

	for i := 0; i < 100; i++ {
		assert.NoError(t, gate.Enforce(context.Background(), policy, "user-1"))
	}
}
