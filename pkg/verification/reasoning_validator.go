// Copyright 2025 Certen Protocol

package verification

import (
	"context"
	"fmt"

	"github.com/intentmesh/coordinator/pkg/errs"
	"github.com/intentmesh/coordinator/pkg/reasoning"
)

// ReasoningCrossValidator implements CrossValidator by issuing a second
// reasoning request through the same runtime a task's primary answer came
// from, per §4.5.1 step 3: complexity 3000, workflow Standard, asking the
// model whether the original response is accurate.
type ReasoningCrossValidator struct {
	runtime *reasoning.Runtime
}

// NewReasoningCrossValidator wraps a *reasoning.Runtime as a CrossValidator.
func NewReasoningCrossValidator(runtime *reasoning.Runtime) *ReasoningCrossValidator {
	return &ReasoningCrossValidator{runtime: runtime}
}

// CrossValidate rejects re-entrant calls past CrossValidationDepthLimit,
// then asks the runtime whether the candidate response is accurate.
func (v *ReasoningCrossValidator) CrossValidate(ctx context.Context, query, response string, depth int) (CrossValidationResponse, error) {
	if depth > CrossValidationDepthLimit {
		return CrossValidationResponse{}, errs.PreconditionFailedf("verification.CrossValidate", "cross-validation depth %d exceeds limit %d", depth, CrossValidationDepthLimit)
	}

	prompt := fmt.Sprintf("Question: %s\nProposed answer: %s\nIs the proposed answer accurate? Answer yes or no and state your confidence.", query, response)
	resp, err := v.runtime.Process(ctx, reasoning.Request{
		Intent:     prompt,
		Workflow:   reasoning.WorkflowStandard,
		Complexity: 3000,
	})
	if err != nil {
		return CrossValidationResponse{}, fmt.Errorf("cross-validation inference failed: %w", err)
	}

	agrees, _ := ParseAgreement(resp.Result)
	return CrossValidationResponse{
		Confidence: float64(resp.ConfidenceBps) / 10000,
		Agrees:     agrees,
	}, nil
}
