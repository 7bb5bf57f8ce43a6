package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		policy, err := NewPolicy("", PerMinute(10))

		assert.Error(t, err)
		assert.Nil(t, policy)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("rejects policy without windows", func(t *testing.T) {
		policy, err := NewPolicy("empty")

		assert.Error(t, err)
		assert.Nil(t, policy)
		assert.Contains(t, err.Error(), "at least one window")
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		policy, err := NewPolicy("bad", Window{Duration: 0, MaxRequests: 10})

		assert.Error(t, err)
		assert.Nil(t, policy)
		assert.Contains(t, err.Error(), "duration must be positive")
	})

	t.Run("rejects non-positive max requests", func(t *testing.T) {
		policy, err := NewPolicy("bad", Window{Duration: time.Minute, MaxRequests: 0})

		assert.Error(t, err)
		assert.Nil(t, policy)
		assert.Contains(t, err.Error(), "max requests must be positive")
	})

	t.Run("single window keeps empty label", func(t *testing.T) {
		policy, err := NewPolicy("basic", Window{Duration: 60 * time.Second, MaxRequests: 3})

		require.NoError(t, err)
		require.Len(t, policy.Windows, 1)
		assert.Empty(t, policy.Windows[0].Label)
	})

	t.Run("multiple windows sorted and labeled", func(t *testing.T) {
		policy, err := NewPolicy("token-tier", PerDay(100), PerMinute(2), PerHour(3))

		require.NoError(t, err)
		require.Len(t, policy.Windows, 3)

		assert.Equal(t, time.Minute, policy.Windows[0].Duration)
		assert.Equal(t, "minute", policy.Windows[0].Label)
		assert.Equal(t, time.Hour, policy.Windows[1].Duration)
		assert.Equal(t, "hour", policy.Windows[1].Label)
		assert.Equal(t, 24*time.Hour, policy.Windows[2].Duration)
		assert.Equal(t, "day", policy.Windows[2].Label)
	})

	t.Run("explicit labels preserved", func(t *testing.T) {
		policy, err := NewPolicy("custom",
			Window{Duration: 30 * time.Second, MaxRequests: 5, Label: "burst"},
			Window{Duration: time.Hour, MaxRequests: 500},
		)

		require.NoError(t, err)
		assert.Equal(t, "burst", policy.Windows[0].Label)
		assert.Equal(t, "hour", policy.Windows[1].Label)
	})

	t.Run("rejects duplicate labels", func(t *testing.T) {
		policy, err := NewPolicy("dup",
			Window{Duration: time.Minute, MaxRequests: 5, Label: "same"},
			Window{Duration: time.Hour, MaxRequests: 50, Label: "same"},
		)

		assert.Error(t, err)
		assert.Nil(t, policy)
		assert.Contains(t, err.Error(), "duplicate window label")
	})

	t.Run("rejects windows with the same duration", func(t *testing.T) {
		policy, err := NewPolicy("dup", PerMinute(5), PerMinute(10))

		assert.Error(t, err)
		assert.Nil(t, policy)
	})

	t.Run("does not mutate the input windows", func(t *testing.T) {
		windows := []Window{PerHour(3), PerMinute(2)}

		_, err := NewPolicy("token-tier", windows...)

		require.NoError(t, err)
		assert.Equal(t, time.Hour, windows[0].Duration)
		assert.Empty(t, windows[0].Label)
	})
}

func TestMustNewPolicy(t *testing.T) {
	t.Run("returns valid policy", func(t *testing.T) {
		policy := MustNewPolicy("ok", PerMinute(10))

		assert.Equal(t, "ok", policy.Name)
	})

	t.Run("panics on invalid input", func(t *testing.T) {
		assert.Panics(t, func() {
			MustNewPolicy("broken")
		})
	})
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	require.Len(t, policy.Windows, 1)
	assert.Equal(t, 60*time.Second, policy.Windows[0].Duration)
	assert.Equal(t, 60, policy.Windows[0].MaxRequests)
	assert.Empty(t, policy.Windows[0].Label)
}

func TestStaticSource(t *testing.T) {
	ctx := context.Background()

	identityPolicy := MustNewPolicy("pinned", PerMinute(5))
	namespacePolicy := MustNewPolicy("tokens", PerMinute(2), PerHour(3))

	source := NewStaticSource()
	source.SetIdentityPolicy(Identity{Namespace: "token", ID: "klm-7"}, identityPolicy)
	source.SetNamespacePolicy("token", namespacePolicy)

	t.Run("identity entry wins over namespace", func(t *testing.T) {
		policy, err := source.PolicyFor(ctx, Identity{Namespace: "token", ID: "klm-7"})

		require.NoError(t, err)
		assert.Same(t, identityPolicy, policy)
	})

	t.Run("falls back to namespace policy", func(t *testing.T) {
		policy, err := source.PolicyFor(ctx, Identity{Namespace: "token", ID: "other"})

		require.NoError(t, err)
		assert.Same(t, namespacePolicy, policy)
	})

	t.Run("unknown identity returns ErrPolicyNotFound", func(t *testing.T) {
		policy, err := source.PolicyFor(ctx, Identity{Namespace: "ip", ID: "203.0.113.4"})

		assert.Nil(t, policy)
		assert.ErrorIs(t, err, ErrPolicyNotFound)
	})
}
