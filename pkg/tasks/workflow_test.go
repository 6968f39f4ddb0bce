// Copyright 2025 Certen Protocol

package tasks

import (
	"testing"

	"github.com/intentmesh/coordinator/pkg/reasoning"
)

func TestResolveWorkflow_OverrideRules(t *testing.T) {
	cases := []struct {
		name        string
		requested   Workflow
		criticality Criticality
		complexity  int
		want        Workflow
	}{
		{"mission critical always guarded", WorkflowFastRealtime, CriticalityMissionCritical, 100, WorkflowConsensusGuarded},
		{"high complexity forces deep reasoning", WorkflowBalanced, CriticalityHigh, 700, WorkflowDeepReasoning},
		{"high low complexity falls to balanced", WorkflowBalanced, CriticalityHigh, 400, WorkflowBalanced},
		{"low complexity forces fast realtime", WorkflowBalanced, CriticalityLow, 100, WorkflowFastRealtime},
		{"low high complexity keeps requested", WorkflowDeepReasoning, CriticalityLow, 900, WorkflowDeepReasoning},
		{"standard keeps requested", WorkflowBalanced, CriticalityStandard, 5000, WorkflowBalanced},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ResolveWorkflow(c.requested, c.criticality, c.complexity)
			if got != c.want {
				t.Fatalf("ResolveWorkflow(%v,%v,%d) = %v, want %v", c.requested, c.criticality, c.complexity, got, c.want)
			}
		})
	}
}

func TestToReasoningWorkflow_MapsAllFourClasses(t *testing.T) {
	cases := map[Workflow]reasoning.Workflow{
		WorkflowFastRealtime:     reasoning.WorkflowExpressLocal,
		WorkflowBalanced:         reasoning.WorkflowStandard,
		WorkflowDeepReasoning:    reasoning.WorkflowHighPrecision,
		WorkflowConsensusGuarded: reasoning.WorkflowMissionCritical,
	}
	for in, want := range cases {
		if got := ToReasoningWorkflow(in); got != want {
			t.Fatalf("ToReasoningWorkflow(%v) = %v, want %v", in, got, want)
		}
	}
}
