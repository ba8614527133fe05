package analytics

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

// Trigger is a user-defined suggestion rule expressed in CEL. When its
// condition evaluates true for a test, the rule suggests the given size.
type Trigger struct {
	Condition string          `json:"condition" yaml:"condition"`
	Suggest   domain.TestSize `json:"suggest" yaml:"suggest"`
	Reason    string          `json:"reason" yaml:"reason"`
	Enabled   bool            `json:"enabled" yaml:"enabled"`
}

// RuleClassifier evaluates custom triggers against per-test facts. It
// runs before the built-in categorization rules; the first matching
// enabled trigger wins.
type RuleClassifier struct {
	triggers []Trigger
	env      *cel.Env
}

// NewRuleClassifier creates a classifier for the given triggers. The CEL
// environment exposes the test's duration in seconds, the number of
// distinct resource types it touched, and its current size marker.
func NewRuleClassifier(triggers []Trigger) (*RuleClassifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("duration", cel.DoubleType),
		cel.Variable("resource_count", cel.IntType),
		cel.Variable("current", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &RuleClassifier{triggers: triggers, env: env}, nil
}

// Classify evaluates the triggers in order and returns the first match.
// Triggers with invalid expressions are skipped.
func (c *RuleClassifier) Classify(duration float64, resourceCount int, current domain.TestSize) (domain.TestSize, string, bool) {
	for _, trigger := range c.triggers {
		if !trigger.Enabled {
			continue
		}
		if c.matches(trigger, duration, resourceCount, current) {
			return trigger.Suggest, trigger.Reason, true
		}
	}
	return "", "", false
}

func (c *RuleClassifier) matches(trigger Trigger, duration float64, resourceCount int, current domain.TestSize) bool {
	ast, issues := c.env.Compile(trigger.Condition)
	if issues != nil && issues.Err() != nil {
		return false
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return false
	}

	result, _, err := prg.Eval(map[string]interface{}{
		"duration":       duration,
		"resource_count": int64(resourceCount),
		"current":        string(current),
	})
	if err != nil {
		return false
	}

	match, ok := result.Value().(bool)
	return ok && match
}

// SuggestWithRules runs the collector's analysis with the classifier's
// triggers taking precedence over the built-in rules.
func SuggestWithRules(c *Collector, classifier *RuleClassifier) []TestSuggestion {
	var suggestions []TestSuggestion
	for _, id := range c.TestIDs() {
		observations := c.Observations(id)
		duration, hasDuration := c.ExecutionTime(id)
		current := c.CurrentSize(id)

		types := map[domain.ResourceType]struct{}{}
		for _, obs := range observations {
			types[obs.Resource] = struct{}{}
		}

		suggested, reason, matched := classifier.Classify(duration, len(types), current)
		if !matched {
			suggested, reason = analyzeBehavior(observations, duration, hasDuration)
		}
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
