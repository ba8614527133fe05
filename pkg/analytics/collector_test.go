package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

func TestCollector_RecordAndQuery(t *testing.T) {
	c := NewCollector()

	c.RecordObservation("t::a", domain.ResourceNetwork, "Connection to example.com:443")
	c.RecordObservation("t::a", domain.ResourceNetwork, "Connection to example.com:80")
	c.RecordExecutionTime("t::a", 0.5)
	c.RecordCurrentSize("t::a", domain.SizeSmall)

	assert.Equal(t, 2, c.ObservationCount())
	assert.True(t, c.HasObservations())
	assert.Len(t, c.Observations("t::a"), 2)

	d, ok := c.ExecutionTime("t::a")
	assert.True(t, ok)
	assert.Equal(t, 0.5, d)
	assert.Equal(t, domain.SizeSmall, c.CurrentSize("t::a"))
}

func TestCollector_ExecutionTimeKeepsLatest(t *testing.T) {
	c := NewCollector()

	c.RecordExecutionTime("t::a", 0.5)
	c.RecordExecutionTime("t::a", 1.5)

	d, _ := c.ExecutionTime("t::a")
	assert.Equal(t, 1.5, d)
}

func TestCollector_EmptyHasNoObservations(t *testing.T) {
	c := NewCollector()

	assert.False(t, c.HasObservations())
	assert.Empty(t, c.Observations("t::missing"))
	_, ok := c.ExecutionTime("t::missing")
	assert.False(t, ok)
}

func TestSuggestions_VerySlowTestGoesLarge(t *testing.T) {
	c := NewCollector()
	c.RecordExecutionTime("t::slow", 350.0)
	c.RecordCurrentSize("t::slow", domain.SizeMedium)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.SizeLarge, suggestions[0].SuggestedSize)
	assert.Equal(t, "duration >5min (350.0s)", suggestions[0].Reason)
}

func TestSuggestions_MultipleResourceTypesGoLarge(t *testing.T) {
	c := NewCollector()
	c.RecordObservation("t::multi", domain.ResourceNetwork, "conn")
	c.RecordObservation("t::multi", domain.ResourceDatabase, "query")
	c.RecordCurrentSize("t::multi", domain.SizeMedium)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.SizeLarge, suggestions[0].SuggestedSize)
	assert.Equal(t, "multiple resource types (database, network)", suggestions[0].Reason)
}

func TestSuggestions_SingleResourceGoesMedium(t *testing.T) {
	c := NewCollector()
	c.RecordObservation("t::net", domain.ResourceNetwork, "conn")
	c.RecordCurrentSize("t::net", domain.SizeSmall)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.SizeMedium, suggestions[0].SuggestedSize)
	assert.Equal(t, "network access detected", suggestions[0].Reason)
}

func TestSuggestions_SlowDurationGoesMedium(t *testing.T) {
	c := NewCollector()
	c.RecordExecutionTime("t::slowish", 1.5)
	c.RecordCurrentSize("t::slowish", domain.SizeSmall)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.SizeMedium, suggestions[0].SuggestedSize)
	assert.Equal(t, "slow duration (1.50s)", suggestions[0].Reason)
}

func TestSuggestions_FastCleanTestGoesSmall(t *testing.T) {
	c := NewCollector()
	c.RecordExecutionTime("t::fast", 0.05)
	c.RecordCurrentSize("t::fast", domain.SizeMedium)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.SizeSmall, suggestions[0].SuggestedSize)
	assert.Equal(t, "no external resources, 50ms", suggestions[0].Reason)
}

func TestSuggestions_MatchingSizeEmitsNothing(t *testing.T) {
	c := NewCollector()
	c.RecordObservation("t::ok", domain.ResourceNetwork, "conn")
	c.RecordCurrentSize("t::ok", domain.SizeMedium)

	assert.Empty(t, c.GenerateSuggestions())
}

func TestSuggestions_UncategorizedTestSuggested(t *testing.T) {
	c := NewCollector()
	c.RecordExecutionTime("t::bare", 0.01)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.TestSize(""), suggestions[0].CurrentSize)
	assert.Equal(t, domain.SizeSmall, suggestions[0].SuggestedSize)
}

func TestSuggestions_VerySlowWinsOverResources(t *testing.T) {
	c := NewCollector()
	c.RecordObservation("t::busy", domain.ResourceNetwork, "conn")
	c.RecordObservation("t::busy", domain.ResourceDatabase, "query")
	c.RecordExecutionTime("t::busy", 400.0)
	c.RecordCurrentSize("t::busy", domain.SizeMedium)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 1)
	assert.Equal(t, "duration >5min (400.0s)", suggestions[0].Reason)
}

func TestSuggestions_SortedByTestID(t *testing.T) {
	c := NewCollector()
	c.RecordExecutionTime("z::1", 2.0)
	c.RecordExecutionTime("a::1", 2.0)

	suggestions := c.GenerateSuggestions()

	require.Len(t, suggestions, 2)
	assert.Equal(t, domain.TestID("a::1"), suggestions[0].TestID)
	assert.Equal(t, domain.TestID("z::1"), suggestions[1].TestID)
}
