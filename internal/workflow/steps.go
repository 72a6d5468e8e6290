package workflow

import (
	"time"

	"github.com/vietddude/trendcore/internal/core/domain"
)

// Definition is the fixed shape of one workflow kind.
type Definition struct {
	Kind  domain.WorkflowKind
	Steps []string
	// Timeout is the expected upper bound for a whole run. It is advisory and
	// only enforced by callers that opt in.
	Timeout time.Duration
}

var definitions = map[domain.WorkflowKind]Definition{
	domain.WorkflowTopicDecomposition: {
		Kind: domain.WorkflowTopicDecomposition,
		Steps: []string{
			"Analyzing main topic",
			"Generating subtopics",
			"Scoring search demand",
			"Ranking subtopics",
		},
		Timeout: 2 * time.Minute,
	},
	domain.WorkflowAffiliateResearch: {
		Kind: domain.WorkflowAffiliateResearch,
		Steps: []string{
			"Searching affiliate programs",
			"Checking commission structures",
			"Evaluating program reputation",
			"Scoring profitability",
			"Compiling results",
		},
		Timeout: 5 * time.Minute,
	},
	domain.WorkflowTrendAnalysis: {
		Kind: domain.WorkflowTrendAnalysis,
		Steps: []string{
			"Preparing request",
			"Fetching trend data",
			"Analyzing subtopic trends",
			"Building insights",
		},
		Timeout: 3 * time.Minute,
	},
	domain.WorkflowContentGeneration: {
		Kind: domain.WorkflowContentGeneration,
		Steps: []string{
			"Gathering research context",
			"Generating content ideas",
			"Drafting outlines",
			"Scoring ideas",
		},
		Timeout: 4 * time.Minute,
	},
	domain.WorkflowKeywordClustering: {
		Kind: domain.WorkflowKeywordClustering,
		Steps: []string{
			"Collecting keywords",
			"Computing similarity",
			"Clustering keywords",
			"Labeling clusters",
		},
		Timeout: 3 * time.Minute,
	},
	domain.WorkflowExternalIntegration: {
		Kind: domain.WorkflowExternalIntegration,
		Steps: []string{
			"Connecting to service",
			"Fetching external data",
			"Normalizing records",
		},
		Timeout: 2 * time.Minute,
	},
}

// Lookup returns the definition for kind.
func Lookup(kind domain.WorkflowKind) (Definition, bool) {
	def, ok := definitions[kind]
	if !ok {
		return Definition{}, false
	}
	def.Steps = append([]string(nil), def.Steps...)
	return def, true
}

// Definitions returns every definition in domain.WorkflowKinds order.
func Definitions() []Definition {
	out := make([]Definition, 0, len(domain.WorkflowKinds))
	for _, kind := range domain.WorkflowKinds {
		if def, ok := Lookup(kind); ok {
			out = append(out, def)
		}
	}
	return out
}
