// Copyright 2025 Certen Protocol
//
// Package zkproof implements the ZK proof layer (C6): a simplified gnark
// circuit binding a reasoning trace's public commitments, a Groth16
// prover/verifier pair, a task-keyed proof cache, and the proof-policy
// table by task criticality. The proof's own lifecycle state machine is
// grounded on pkg/proof/lifecycle.go's ValidTransitions table and
// StateChangeListener pattern.
package zkproof

// Criticality is the task-level tier that drives proof policy.
type Criticality string

const (
	CriticalityLow             Criticality = "Low"
	CriticalityStandard        Criticality = "Standard"
	CriticalityHigh            Criticality = "High"
	CriticalityMissionCritical Criticality = "MissionCritical"
)

// PolicyLevel is the human-facing strength of a criticality's proof policy.
type PolicyLevel string

const (
	PolicyNone        PolicyLevel = "None"
	PolicyOptional    PolicyLevel = "Optional"
	PolicyRecommended PolicyLevel = "Recommended"
	PolicyMandatory   PolicyLevel = "Mandatory"
)

// Policy encodes the proof requirements for a criticality tier.
type Policy struct {
	Level            PolicyLevel
	RequiresZK       bool
	RequiresTEE      bool
	RequiresMultisig bool
	MinVerifiers     int
}

// DefaultProofPolicy returns the policy table indexed by criticality.
func DefaultProofPolicy(criticality Criticality) Policy {
	switch criticality {
	case CriticalityMissionCritical:
		return Policy{Level: PolicyMandatory, RequiresZK: true, RequiresTEE: true, RequiresMultisig: true, MinVerifiers: 3}
	case CriticalityHigh:
		return Policy{Level: PolicyRecommended, RequiresZK: true, RequiresTEE: false, RequiresMultisig: true, MinVerifiers: 2}
	case CriticalityStandard:
		return Policy{Level: PolicyOptional, RequiresZK: false, RequiresTEE: false, RequiresMultisig: true, MinVerifiers: 1}
	case CriticalityLow:
		return Policy{Level: PolicyNone, RequiresZK: false, RequiresTEE: false, RequiresMultisig: false, MinVerifiers: 1}
	default:
		return Policy{Level: PolicyNone, RequiresZK: false, RequiresTEE: false, RequiresMultisig: false, MinVerifiers: 1}
	}
}

// RequiresProof reports whether a task at this criticality must carry a
// ZK proof before reaching ReadyForExecution.
func (p Policy) RequiresProof() bool {
	return p.RequiresZK
}
