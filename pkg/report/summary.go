package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hermetic-ci/hermetic/pkg/analytics"
	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// OutputWriter is the terminal output surface for human-readable
// summaries.
type OutputWriter interface {
	WriteLine(line string)
	WriteSection(title string)
	WriteSeparator()
}

// PlainWriter writes summary output to an io.Writer with '=' rules.
type PlainWriter struct {
	W io.Writer
}

func (p *PlainWriter) WriteLine(line string) {
	fmt.Fprintln(p.W, line)
}

func (p *PlainWriter) WriteSection(title string) {
	p.WriteSeparator()
	fmt.Fprintln(p.W, title)
	p.WriteSeparator()
}

func (p *PlainWriter) WriteSeparator() {
	fmt.Fprintln(p.W, strings.Repeat("=", 60))
}

type transition struct {
	current   domain.TestSize
	suggested domain.TestSize
}

// WriteSuggestionSummary renders suggestions grouped into upgrades,
// downgrades and uncategorized tests. Writes nothing when there are no
// suggestions.
func WriteSuggestionSummary(suggestions []analytics.TestSuggestion, w OutputWriter) {
	if len(suggestions) == 0 {
		return
	}

	w.WriteSection("Test Categorization Suggestions")
	w.WriteLine("Based on observed behavior, here are suggested categories:")
	w.WriteLine("")

	upgrades := map[transition][]analytics.TestSuggestion{}
	downgrades := map[transition][]analytics.TestSuggestion{}
	var uncategorized []analytics.TestSuggestion

	for _, s := range suggestions {
		switch {
		case s.CurrentSize == "":
			uncategorized = append(uncategorized, s)
		case s.SuggestedSize.Rank() > s.CurrentSize.Rank():
			key := transition{s.CurrentSize, s.SuggestedSize}
			upgrades[key] = append(upgrades[key], s)
		default:
			key := transition{s.CurrentSize, s.SuggestedSize}
			downgrades[key] = append(downgrades[key], s)
		}
	}

	for _, key := range sortedTransitions(upgrades) {
		w.WriteLine(fmt.Sprintf("Currently @%s but should be @%s:", key.current, key.suggested))
		for _, s := range upgrades[key] {
			w.WriteLine(fmt.Sprintf("  %s (%s)", s.TestID, s.Reason))
		}
		w.WriteLine("")
	}

	for _, key := range sortedTransitions(downgrades) {
		w.WriteLine(fmt.Sprintf("Currently @%s but could be @%s:", key.current, key.suggested))
		for _, s := range downgrades[key] {
			w.WriteLine(fmt.Sprintf("  %s (%s)", s.TestID, s.Reason))
		}
		w.WriteLine("")
	}

	if len(uncategorized) > 0 {
		w.WriteLine("Uncategorized tests - suggested categories:")
		for _, s := range uncategorized {
			w.WriteLine(fmt.Sprintf("  %s -> @%s (%s)", s.TestID, s.SuggestedSize, s.Reason))
		}
		w.WriteLine("")
	}

	w.WriteLine("Run with --suggest-output=suggestions.json for machine-readable output")
	w.WriteSeparator()
}

func sortedTransitions(groups map[transition][]analytics.TestSuggestion) []transition {
	keys := make([]transition, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].current != keys[j].current {
			return keys[i].current.Rank() < keys[j].current.Rank()
		}
		return keys[i].suggested.Rank() < keys[j].suggested.Rank()
	})
	return keys
}
