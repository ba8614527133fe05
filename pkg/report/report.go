// Package report builds machine-readable run reports and merges reports
// from parallel workers.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hermetic-ci/hermetic/pkg/analytics"
	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/violations"
)

// Version is stamped into every report.
const Version = "1.0.0"

// DistributionEntry is the count, share and target for one size category.
type DistributionEntry struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Target     float64 `json:"target"`
}

// ViolationsSummary aggregates timing and hermeticity violations.
type ViolationsSummary struct {
	Timing      int                `json:"timing"`
	Hermeticity violations.Summary `json:"hermeticity"`
}

// Summary is the aggregate section of a report.
type Summary struct {
	TotalTests   int                          `json:"total_tests"`
	Distribution map[string]DistributionEntry `json:"distribution"`
	Violations   ViolationsSummary            `json:"violations"`
}

// TestEntry is the per-test detail section.
type TestEntry struct {
	Name       string                 `json:"name"`
	Size       string                 `json:"size"`
	Duration   *float64               `json:"duration"`
	Status     string                 `json:"status"`
	Violations []domain.ViolationType `json:"violations"`
}

// Report is the root document written for CI consumption.
type Report struct {
	Version     string                     `json:"version"`
	Timestamp   time.Time                  `json:"timestamp"`
	Summary     Summary                    `json:"summary"`
	Tests       []TestEntry                `json:"tests"`
	Suggestions []analytics.TestSuggestion `json:"suggestions,omitempty"`
}

// Build assembles a report from the run's counts, violation snapshot and
// suggestions.
func Build(counts analytics.Counts, snapshot violations.SessionRecord, timingViolations int, tests []TestEntry, suggestions []analytics.TestSuggestion) Report {
	percentages := analytics.CalculatePercentages(counts)
	targets := analytics.DefaultTargets()

	return Report{
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Summary: Summary{
			TotalTests: counts.Total(),
			Distribution: map[string]DistributionEntry{
				"small":  {Count: counts.Small, Percentage: percentages.Small, Target: targets.Small.Target},
				"medium": {Count: counts.Medium, Percentage: percentages.Medium, Target: targets.Medium.Target},
				"large":  {Count: counts.Large, Percentage: percentages.Large, Target: targets.LargeXLarge.Target},
				"xlarge": {Count: counts.XLarge, Percentage: percentages.XLarge, Target: targets.LargeXLarge.Target},
			},
			Violations: ViolationsSummary{
				Timing:      timingViolations,
				Hermeticity: snapshot.Summary,
			},
		},
		Tests:       tests,
		Suggestions: suggestions,
	}
}

// WriteJSON writes the report to path as indented JSON.
func WriteJSON(r Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadJSON loads a report from path.
func ReadJSON(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("parse report: %w", err)
	}
	return r, nil
}

// Merge loads per-worker reports concurrently and combines them into one.
// Counts and violation totals add up; test entries and suggestions
// concatenate, sorted by test name.
func Merge(ctx context.Context, paths []string) (Report, error) {
	var mu sync.Mutex
	reports := make([]Report, 0, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			r, err := ReadJSON(path)
			if err != nil {
				return err
			}
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var counts analytics.Counts
	var sum violations.Summary
	var timingTotal int
	var tests []TestEntry
	var suggestions []analytics.TestSuggestion

	for _, r := range reports {
		if d, ok := r.Summary.Distribution["small"]; ok {
			counts.Small += d.Count
		}
		if d, ok := r.Summary.Distribution["medium"]; ok {
			counts.Medium += d.Count
		}
		if d, ok := r.Summary.Distribution["large"]; ok {
			counts.Large += d.Count
		}
		if d, ok := r.Summary.Distribution["xlarge"]; ok {
			counts.XLarge += d.Count
		}
		sum.Network += r.Summary.Violations.Hermeticity.Network
		sum.Filesystem += r.Summary.Violations.Hermeticity.Filesystem
		sum.Process += r.Summary.Violations.Hermeticity.Process
		sum.Database += r.Summary.Violations.Hermeticity.Database
		sum.Sleep += r.Summary.Violations.Hermeticity.Sleep
		timingTotal += r.Summary.Violations.Timing
		tests = append(tests, r.Tests...)
		suggestions = append(suggestions, r.Suggestions...)
	}

	sort.Slice(tests, func(i, j int) bool { return tests[i].Name < tests[j].Name })
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].TestID < suggestions[j].TestID })

	return Build(counts, violations.SessionRecord{Summary: sum}, timingTotal, tests, suggestions), nil
}
