// internal/asset/domain_test.go
package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grccore/internal/domain"
)

func TestNewAssetStartsAsDraft(t *testing.T) {
	a, err := New("  Customer Database  ", "infra-team")
	require.NoError(t, err)

	assert.Equal(t, "Customer Database", a.Name)
	assert.Equal(t, "infra-team", a.Owner)
	assert.Equal(t, Draft, a.State)

	events := a.UncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventAssetCreated, events[0].EventType)
	assert.Equal(t, 1, events[0].AggregateVersion)
}

func TestNewAssetRejectsBlankName(t *testing.T) {
	_, err := New("   ", "infra-team")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "name", validation.Field)
}

func TestLifecycleHappyPath(t *testing.T) {
	a, err := New("Web Server", "platform")
	require.NoError(t, err)

	require.NoError(t, a.Activate())
	assert.Equal(t, InUse, a.State)

	require.NoError(t, a.Archive())
	assert.Equal(t, Archived, a.State)

	events := a.UncommittedEvents()
	require.Len(t, events, 3)
	assert.Equal(t, EventAssetActivated, events[1].EventType)
	assert.Equal(t, EventAssetArchived, events[2].EventType)
}

func TestClassifyAllowedWhileDraftOrInUse(t *testing.T) {
	a, err := New("Web Server", "platform")
	require.NoError(t, err)

	c, err := domain.NewClassification(3, 2, 4)
	require.NoError(t, err)

	require.NoError(t, a.Classify(c))
	assert.Equal(t, c, a.Classification)

	require.NoError(t, a.Activate())
	require.NoError(t, a.Classify(c))
}

func TestClassifyFrozenAfterArchive(t *testing.T) {
	a, err := New("Web Server", "platform")
	require.NoError(t, err)
	require.NoError(t, a.Activate())
	require.NoError(t, a.Archive())

	before := len(a.UncommittedEvents())
	c, err := domain.NewClassification(1, 1, 1)
	require.NoError(t, err)

	err = a.Classify(c)
	var transition *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "classify", transition.Action)

	// a rejected transition raises nothing and changes nothing
	assert.Len(t, a.UncommittedEvents(), before)
	assert.Equal(t, domain.Classification{}, a.Classification)
}

func TestInvalidTransitions(t *testing.T) {
	t.Run("archive from draft", func(t *testing.T) {
		a, err := New("Web Server", "platform")
		require.NoError(t, err)

		err = a.Archive()
		var transition *domain.InvalidTransitionError
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, Draft, a.State)
		assert.Len(t, a.UncommittedEvents(), 1)
	})

	t.Run("activate twice", func(t *testing.T) {
		a, err := New("Web Server", "platform")
		require.NoError(t, err)
		require.NoError(t, a.Activate())

		err = a.Activate()
		var transition *domain.InvalidTransitionError
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, InUse, a.State)
	})
}
