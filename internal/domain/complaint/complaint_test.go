package complaint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComplaint(t *testing.T) {
	c, err := NewComplaint("acc-1", "rep-1", 42)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, c.Status)
	assert.Equal(t, "acc-1", c.AccusedKey)
	assert.False(t, c.HasEvidence)

	_, err = NewComplaint("", "rep-1", 42)
	assert.Error(t, err)

	_, err = NewComplaint("acc-1", "rep-1", 101)
	assert.Error(t, err)
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range Statuses() {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("escalated")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusUnderReview.Terminal())
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}
