package classifier

import (
	"context"
	"strings"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// KeywordRule binds an agent to the keywords that select it.
type KeywordRule struct {
	Agent    models.AgentInfo
	Keywords []string
}

// KeywordClassifier selects an agent by keyword matching. It needs no
// model call, which makes it useful offline and as a cheap first pass.
type KeywordClassifier struct {
	rules []KeywordRule
}

// NewKeywordClassifier creates a classifier from the given rules.
// Rules are checked in order; the rule with the most keyword hits wins.
func NewKeywordClassifier(rules []KeywordRule) *KeywordClassifier {
	copied := make([]KeywordRule, len(rules))
	copy(copied, rules)
	return &KeywordClassifier{rules: copied}
}

// Classify implements Classifier. Input with no keyword hits yields a
// nil Agent with zero confidence; the caller decides what to do with it.
func (c *KeywordClassifier) Classify(ctx context.Context, input string, history []models.Message) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	lowerInput := strings.ToLower(input)

	var best *KeywordRule
	bestHits := 0
	for i := range c.rules {
		hits := 0
		for _, keyword := range c.rules[i].Keywords {
			if strings.Contains(lowerInput, strings.ToLower(keyword)) {
				hits++
			}
		}
		if hits > bestHits {
			best = &c.rules[i]
			bestHits = hits
		}
	}

	if best == nil {
		return Result{}, nil
	}

	agent := best.Agent
	return Result{
		Agent:      &agent,
		Confidence: keywordConfidence(bestHits),
	}, nil
}

// keywordConfidence maps hit counts onto [0,1]. One hit is a weak
// signal; three or more is as sure as keyword matching gets.
func keywordConfidence(hits int) float64 {
	switch {
	case hits <= 0:
		return 0
	case hits == 1:
		return 0.6
	case hits == 2:
		return 0.8
	default:
		return 0.95
	}
}
