// Copyright 2025 Certen Protocol

package tasks

import "github.com/intentmesh/coordinator/pkg/reasoning"

// ResolveWorkflow applies the claim-time override: task criticality can
// force a stricter (or looser) workflow class than the submitter
// requested. Matches original_source's resolve_workflow.
func ResolveWorkflow(requested Workflow, criticality Criticality, complexity int) Workflow {
	switch {
	case criticality == CriticalityMissionCritical:
		return WorkflowConsensusGuarded
	case criticality == CriticalityHigh && complexity > 600:
		return WorkflowDeepReasoning
	case criticality == CriticalityHigh:
		return WorkflowBalanced
	case criticality == CriticalityLow && complexity < 200:
		return WorkflowFastRealtime
	default:
		return requested
	}
}

// reasoningWorkflow maps a task's on-chain workflow class to the
// inference-routing workflow class pkg/reasoning understands. The two
// enums are the same concept named differently at different layers.
var reasoningWorkflow = map[Workflow]reasoning.Workflow{
	WorkflowFastRealtime:     reasoning.WorkflowExpressLocal,
	WorkflowBalanced:         reasoning.WorkflowStandard,
	WorkflowDeepReasoning:    reasoning.WorkflowHighPrecision,
	WorkflowConsensusGuarded: reasoning.WorkflowMissionCritical,
}

// ToReasoningWorkflow converts a task Workflow to its pkg/reasoning
// equivalent for tier routing. Unknown workflows route as Standard.
func ToReasoningWorkflow(w Workflow) reasoning.Workflow {
	if rw, ok := reasoningWorkflow[w]; ok {
		return rw
	}
	return reasoning.WorkflowStandard
}
