// Package analytics turns observed test behavior into size suggestions
// and validates the suite's size distribution against target percentages.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// Categorization thresholds.
const (
	SlowTestThresholdSeconds     = 1.0
	VerySlowTestThresholdSeconds = 300.0
	MultipleResourceTypes        = 2
)

// ResourceObservation is one observed resource access.
type ResourceObservation struct {
	Resource domain.ResourceType `json:"resource_type"`
	Details  string              `json:"details"`
}

// TestSuggestion recommends a size for a test whose observed behavior does
// not match its current marker. CurrentSize is empty for uncategorized tests.
type TestSuggestion struct {
	TestID        domain.TestID   `json:"test_nodeid"`
	CurrentSize   domain.TestSize `json:"current_size,omitempty"`
	SuggestedSize domain.TestSize `json:"suggested_size"`
	Reason        string          `json:"reason"`
}

// Collector records resource observations, execution times and current
// sizes during a run, then derives suggestions. Recording is purely
// additive; execution time and current size keep the latest value per test.
type Collector struct {
	mu           sync.Mutex
	observations map[domain.TestID][]ResourceObservation
	durations    map[domain.TestID]float64
	currentSizes map[domain.TestID]domain.TestSize
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		observations: make(map[domain.TestID][]ResourceObservation),
		durations:    make(map[domain.TestID]float64),
		currentSizes: make(map[domain.TestID]domain.TestSize),
	}
}

// RecordObservation appends a resource access observation for a test.
func (c *Collector) RecordObservation(testID domain.TestID, resource domain.ResourceType, details string) {
	c.mu.Lock()
	c.observations[testID] = append(c.observations[testID], ResourceObservation{Resource: resource, Details: details})
	c.mu.Unlock()
}

// RecordExecutionTime stores the latest execution time for a test.
func (c *Collector) RecordExecutionTime(testID domain.TestID, seconds float64) {
	c.mu.Lock()
	c.durations[testID] = seconds
	c.mu.Unlock()
}

// RecordCurrentSize stores the test's current size marker; an empty size
// marks the test as uncategorized.
func (c *Collector) RecordCurrentSize(testID domain.TestID, size domain.TestSize) {
	c.mu.Lock()
	c.currentSizes[testID] = size
	c.mu.Unlock()
}

// ObservationCount is the total number of observations across all tests.
func (c *Collector) ObservationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, obs := range c.observations {
		n += len(obs)
	}
	return n
}

// HasObservations reports whether anything has been observed.
func (c *Collector) HasObservations() bool {
	return c.ObservationCount() > 0
}

// Observations returns the observations recorded for one test.
func (c *Collector) Observations(testID domain.TestID) []ResourceObservation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ResourceObservation, len(c.observations[testID]))
	copy(out, c.observations[testID])
	return out
}

// ExecutionTime returns the recorded duration for a test.
func (c *Collector) ExecutionTime(testID domain.TestID) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.durations[testID]
	return d, ok
}

// CurrentSize returns the recorded size marker for a test.
func (c *Collector) CurrentSize(testID domain.TestID) domain.TestSize {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSizes[testID]
}

// TestIDs returns every test with any recorded data, sorted.
func (c *Collector) TestIDs() []domain.TestID {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[domain.TestID]struct{}{}
	for id := range c.observations {
		seen[id] = struct{}{}
	}
	for id := range c.durations {
		seen[id] = struct{}{}
	}
	for id := range c.currentSizes {
		seen[id] = struct{}{}
	}
	ids := make([]domain.TestID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GenerateSuggestions analyzes every recorded test and returns a
// suggestion for each one whose derived size differs from its current
// marker. Results are sorted by test id.
func (c *Collector) GenerateSuggestions() []TestSuggestion {
	var suggestions []TestSuggestion
	for _, id := range c.TestIDs() {
		c.mu.Lock()
		observations := c.observations[id]
		duration, hasDuration := c.durations[id]
		current := c.currentSizes[id]
		c.mu.Unlock()

		suggested, reason := analyzeBehavior(observations, duration, hasDuration)
		if suggested == current {
			continue
		}
		suggestions = append(suggestions, TestSuggestion{
			TestID:        id,
			CurrentSize:   current,
			SuggestedSize: suggested,
			Reason:        reason,
		})
	}
	return suggestions
}

// analyzeBehavior applies the categorization rules in priority order:
// very slow wins, then resource breadth, then any single resource, then
// slow duration, else small.
func analyzeBehavior(observations []ResourceObservation, duration float64, hasDuration bool) (domain.TestSize, string) {
	types := map[domain.ResourceType]struct{}{}
	for _, obs := range observations {
		types[obs.Resource] = struct{}{}
	}

	if hasDuration && duration > VerySlowTestThresholdSeconds {
		return domain.SizeLarge, fmt.Sprintf("duration >5min (%.1fs)", duration)
	}

	if len(types) >= MultipleResourceTypes {
		names := make([]string, 0, len(types))
		for rt := range types {
			names = append(names, string(rt))
		}
		sort.Strings(names)
		return domain.SizeLarge, fmt.Sprintf("multiple resource types (%s)", strings.Join(names, ", "))
	}

	if len(types) == 1 {
		for rt := range types {
			return domain.SizeMedium, fmt.Sprintf("%s access detected", rt)
		}
	}

	if hasDuration && duration > SlowTestThresholdSeconds {
		return domain.SizeMedium, fmt.Sprintf("slow duration (%.2fs)", duration)
	}

	if hasDuration {
		return domain.SizeSmall, fmt.Sprintf("no external resources, %.0fms", duration*1000)
	}
	return domain.SizeSmall, "no external resources"
}
