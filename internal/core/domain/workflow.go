package domain

import "fmt"

// WorkflowKind identifies one of the fixed multi-step research processes.
// Each kind has its own step list and retry policy.
type WorkflowKind string

const (
	WorkflowTopicDecomposition  WorkflowKind = "topic-decomposition"
	WorkflowAffiliateResearch   WorkflowKind = "affiliate-research"
	WorkflowTrendAnalysis       WorkflowKind = "trend-analysis"
	WorkflowContentGeneration   WorkflowKind = "content-generation"
	WorkflowKeywordClustering   WorkflowKind = "keyword-clustering"
	WorkflowExternalIntegration WorkflowKind = "external-integration"
)

// WorkflowKinds lists every kind in display order.
var WorkflowKinds = []WorkflowKind{
	WorkflowTopicDecomposition,
	WorkflowAffiliateResearch,
	WorkflowTrendAnalysis,
	WorkflowContentGeneration,
	WorkflowKeywordClustering,
	WorkflowExternalIntegration,
}

// Valid reports whether k is one of the known kinds.
func (k WorkflowKind) Valid() bool {
	switch k {
	case WorkflowTopicDecomposition,
		WorkflowAffiliateResearch,
		WorkflowTrendAnalysis,
		WorkflowContentGeneration,
		WorkflowKeywordClustering,
		WorkflowExternalIntegration:
		return true
	}
	return false
}

// ParseWorkflowKind converts an identifier such as "trend-analysis" into a kind.
func ParseWorkflowKind(s string) (WorkflowKind, error) {
	k := WorkflowKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown workflow kind %q", s)
	}
	return k, nil
}

// StepStatus is the status of a single workflow step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepActive  StepStatus = "active"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// WorkflowState is the coarse state of a workflow run.
type WorkflowState string

const (
	WorkflowIdle      WorkflowState = "idle"
	WorkflowRunning   WorkflowState = "running"
	WorkflowCompleted WorkflowState = "completed"
	WorkflowFailed    WorkflowState = "failed"
)
