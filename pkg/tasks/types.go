// Copyright 2025 Certen Protocol
//
// Package tasks implements the reasoning-task state machine: the lifecycle
// a submitted intent moves through from Pending claim to Finalized (or
// Disputed/Cancelled), mirroring the on-chain program's Task account.
package tasks

import "time"

// BPS is the basis-points denominator used throughout scores, reputation,
// and reward multipliers (10000 == 100%).
const BPS = 10000

// State is a Task's position in the claim -> reasoning -> verification ->
// proof -> finalization lifecycle.
type State string

const (
	StatePending           State = "Pending"
	StateReasoning         State = "Reasoning"
	StateVerifying         State = "Verifying"
	StateProofPending      State = "ProofPending"
	StateReadyForExecution State = "ReadyForExecution"
	StateDisputed          State = "Disputed"
	StateFinalized         State = "Finalized"
	StateCancelled         State = "Cancelled"
)

// Workflow is the on-chain service-level category for a task, distinct
// from (but 1:1 with) pkg/reasoning.Workflow's inference-routing class.
type Workflow string

const (
	WorkflowFastRealtime    Workflow = "FastRealtime"
	WorkflowBalanced        Workflow = "Balanced"
	WorkflowDeepReasoning   Workflow = "DeepReasoning"
	WorkflowConsensusGuarded Workflow = "ConsensusGuarded"
)

// Criticality is the orthogonal tier driving proof policy and workflow
// override at claim time.
type Criticality string

const (
	CriticalityLow             Criticality = "Low"
	CriticalityStandard        Criticality = "Standard"
	CriticalityHigh            Criticality = "High"
	CriticalityMissionCritical Criticality = "MissionCritical"
)

// TaskType mirrors the original program's TaskType enum. The distilled
// spec names the field but not its domain; carried forward from
// original_source/programs/daollm/src/state/tro.rs.
type TaskType string

const (
	TaskTypeSimpleQA    TaskType = "SimpleQa"
	TaskTypeAnalytical  TaskType = "Analytical"
	TaskTypeMultiStep   TaskType = "MultiStep"
	TaskTypeGovernance  TaskType = "Governance"
	TaskTypeClearing    TaskType = "Clearing"
)

// DefaultChallengeWindow is the duration (seconds) a freshly-verified task
// remains challengeable unless extended by submit_verification.
const DefaultChallengeWindow = int64(3600)

// Task is a submitted reasoning request and its on-chain-equivalent state.
type Task struct {
	TaskID               uint64
	Submitter            string
	Intent               string
	TaskType             TaskType
	Workflow             Workflow
	ComplexityScore      int
	Criticality          Criticality
	StakePool            uint64
	MinNodeStake         uint64
	Status               State
	RequiresProof        bool
	ProofPolicyLevel     string
	ReasoningResult      string
	VerificationScoreBps int
	ProofHash            [32]byte
	CacheHitUsed         bool
	ResultCID            string
	MetadataHash         [32]byte
	ChallengeWindowSecs  int64
	ChallengePeriodEnd   time.Time
	CreatedTs            time.Time
	UpdatedTs            time.Time
	LastActor            string
	DisputeCount         int
}

// NodeStatus is a reasoning node's lifecycle status.
type NodeStatus string

const (
	NodeRegistered NodeStatus = "Registered"
	NodeActive     NodeStatus = "Active"
	NodeSuspended  NodeStatus = "Suspended"
	NodeSlashed    NodeStatus = "Slashed"
	NodeRetired    NodeStatus = "Retired"
)

// Node is a registered reasoning node.
type Node struct {
	Owner                      string
	Controller                 string
	ModelCapability            string
	WorkflowAffinity           Workflow
	StakeAmount                uint64
	BaseStakeRequirement       uint64
	DynamicMinStake            uint64
	ReputationScoreBps         int
	CacheHitRateBps            int
	VerificationSuccessRateBps int
	ThroughputScoreBps         int
	TotalInferences            uint64
	SuccessfulInferences       uint64
	ActiveTaskID               uint64 // 0 == idle
	Status                     NodeStatus
	PendingRewards             uint64
	RewardCycleID              uint64
	DynamicMultiplierBps       int
	StakeVaultBump             uint8
}

// ChallengeStatus is a dispute's resolution status.
type ChallengeStatus string

const (
	ChallengePending     ChallengeStatus = "Pending"
	ChallengeUnderReview ChallengeStatus = "UnderReview"
	ChallengeUpheld      ChallengeStatus = "Upheld"
	ChallengeOverturned  ChallengeStatus = "Overturned"
)

// Challenge is a dispute raised against a task's result. Status and outcome
// are tracked on the single ChallengeStatus axis here: Pending/UnderReview
// are open states, Upheld/Overturned are the terminal outcome — collapsing
// the spec's separate status/outcome enums, since this repo never needs to
// represent an open-but-undetermined-outcome challenge distinctly from a
// resolved-but-unclassified one.
type Challenge struct {
	TaskID      uint64
	Challenger  string
	Stake       uint64
	Reason      string
	EvidenceCID string
	Status      ChallengeStatus
	CreatedTs   time.Time
	ResolvedTs  time.Time
}

// NewNode seeds a freshly-registered reasoning node with the defaults the
// original program applies at registration time.
func NewNode(owner, controller string, baseStake uint64) *Node {
	return &Node{
		Owner:                owner,
		Controller:           controller,
		StakeAmount:          baseStake,
		BaseStakeRequirement: baseStake,
		DynamicMinStake:      baseStake,
		ReputationScoreBps:   6000,
		DynamicMultiplierBps: BPS,
		Status:               NodeActive,
	}
}
