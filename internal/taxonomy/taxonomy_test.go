package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	t.Run("accepts every declared type", func(t *testing.T) {
		for _, eventType := range All() {
			assert.True(t, IsSupported(eventType), "expected %q to be supported", eventType)
		}
	})

	t.Run("rejects types outside the set", func(t *testing.T) {
		assert.False(t, IsSupported("thesis_defended"))
		assert.False(t, IsSupported(""))
		assert.False(t, IsSupported("Milestone_Updated"))
	})
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryProgress, CategoryOf(EventMilestoneUpdated))
	assert.Equal(t, CategorySupervision, CategoryOf(EventFeedbackLogged))
	assert.Equal(t, Category(""), CategoryOf("unknown"))
}

func TestWithVersion(t *testing.T) {
	t.Run("tags a copy, never the original", func(t *testing.T) {
		original := map[string]any{"delta_days": 3}
		tagged := WithVersion(original, 1)

		require.Equal(t, 1, tagged[VersionKey])
		assert.Equal(t, 3, tagged["delta_days"])
		_, leaked := original[VersionKey]
		assert.False(t, leaked, "caller's map must not be mutated")

		tagged["delta_days"] = 99
		assert.Equal(t, 3, original["delta_days"])
	})

	t.Run("overwrites an existing tag", func(t *testing.T) {
		tagged := WithVersion(map[string]any{VersionKey: 1}, 2)
		assert.Equal(t, 2, tagged[VersionKey])
	})

	t.Run("nil metadata yields a fresh tagged map", func(t *testing.T) {
		tagged := WithVersion(nil, 1)
		require.NotNil(t, tagged)
		assert.Equal(t, 1, tagged[VersionKey])
		assert.Len(t, tagged, 1)
	})
}
