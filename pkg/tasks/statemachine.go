// Copyright 2025 Certen Protocol

package tasks

import (
	"time"

	"github.com/intentmesh/coordinator/pkg/errs"
)

const op = "tasks"

// minChallengeExtension is the floor applied to a challenge-window
// extension on submit_verification, per spec.md section 4.5.4.
const minChallengeExtension = 1800 * time.Second

// setState transitions t to the given state and reports the transition,
// if a metrics registry is attached.
func (s *Store) setState(t *Task, to State) {
	from := t.Status
	t.Status = to
	s.metrics.ObserveTaskTransition(string(from), string(to))
}

// ClaimTask assigns an idle, adequately-staked, active node to a pending
// task and resolves the task's effective workflow class.
func (s *Store) ClaimTask(taskID uint64, node *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".ClaimTask", "unknown task %d", taskID)
	}
	if node.Status != NodeActive {
		return errs.PreconditionFailedf(op+".ClaimTask", "node %s is not Active", node.Owner)
	}
	if node.StakeAmount < t.MinNodeStake {
		return errs.PreconditionFailedf(op+".ClaimTask", "node %s stake %d below min_node_stake %d", node.Owner, node.StakeAmount, t.MinNodeStake)
	}
	if node.ActiveTaskID != 0 && node.ActiveTaskID != taskID {
		return errs.PreconditionFailedf(op+".ClaimTask", "node %s already bound to task %d", node.Owner, node.ActiveTaskID)
	}
	if t.Status != StatePending {
		return errs.PreconditionFailedf(op+".ClaimTask", "task %d is not Pending", taskID)
	}

	t.Workflow = ResolveWorkflow(t.Workflow, t.Criticality, t.ComplexityScore)
	s.setState(t, StateReasoning)
	t.LastActor = node.Owner
	t.UpdatedTs = time.Now()
	node.ActiveTaskID = taskID

	if err := s.persistTask(t); err != nil {
		return err
	}
	return s.persistNode(node)
}

// SubmitReasoning records a node's inference result and advances the task
// to Verifying.
func (s *Store) SubmitReasoning(taskID uint64, node *Node, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".SubmitReasoning", "unknown task %d", taskID)
	}
	if node.ActiveTaskID != taskID {
		return errs.PreconditionFailedf(op+".SubmitReasoning", "node %s not bound to task %d", node.Owner, taskID)
	}
	if t.Status != StateReasoning {
		return errs.PreconditionFailedf(op+".SubmitReasoning", "task %d is not Reasoning", taskID)
	}

	t.ReasoningResult = result
	s.setState(t, StateVerifying)
	t.LastActor = node.Owner
	t.UpdatedTs = time.Now()
	return s.persistTask(t)
}

// SubmitVerification records a verification score and routes the task to
// ProofPending or ReadyForExecution depending on whether a proof is
// required, extending the challenge window.
func (s *Store) SubmitVerification(taskID uint64, actor string, scoreBps int, requiresProof bool, originalWindow time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".SubmitVerification", "unknown task %d", taskID)
	}
	if t.Status != StateVerifying && t.Status != StateProofPending {
		return errs.PreconditionFailedf(op+".SubmitVerification", "task %d is not Verifying or ProofPending", taskID)
	}
	if scoreBps > BPS {
		return errs.Validationf(op+".SubmitVerification", "verification score %d exceeds %d bps", scoreBps, BPS)
	}

	t.VerificationScoreBps = scoreBps
	t.RequiresProof = requiresProof
	now := time.Now()
	extended := minChallengeExtension
	if originalWindow > extended {
		extended = originalWindow
	}
	t.ChallengePeriodEnd = now.Add(extended)

	if requiresProof {
		s.setState(t, StateProofPending)
	} else {
		s.setState(t, StateReadyForExecution)
	}
	t.LastActor = actor
	t.UpdatedTs = now
	return s.persistTask(t)
}

// SubmitProof attaches a proof hash to a ProofPending task and advances it
// to ReadyForExecution.
func (s *Store) SubmitProof(taskID uint64, actor string, proofHash [32]byte, minVerifiers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".SubmitProof", "unknown task %d", taskID)
	}
	if t.RequiresProof && t.Status != StateProofPending {
		return errs.PreconditionFailedf(op+".SubmitProof", "task %d requires proof but is not ProofPending", taskID)
	}
	if minVerifiers < 1 {
		return errs.Validationf(op+".SubmitProof", "proof policy min_verifiers must be >= 1, got %d", minVerifiers)
	}

	t.ProofHash = proofHash
	s.setState(t, StateReadyForExecution)
	t.LastActor = actor
	t.UpdatedTs = time.Now()
	return s.persistTask(t)
}

// Challenge raises a dispute against a ReadyForExecution or Finalized task
// within its challenge window, moving it to Disputed. evidenceCID is the
// content-store CID of supporting evidence for the dispute; optional.
func (s *Store) Challenge(taskID uint64, challenger string, stake uint64, reason, evidenceCID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".Challenge", "unknown task %d", taskID)
	}
	if t.Status != StateReadyForExecution && t.Status != StateFinalized {
		return errs.PreconditionFailedf(op+".Challenge", "task %d is not ReadyForExecution or Finalized", taskID)
	}
	now := time.Now()
	if now.After(t.ChallengePeriodEnd) {
		return errs.PreconditionFailedf(op+".Challenge", "task %d challenge window has closed", taskID)
	}
	if stake == 0 {
		return errs.PreconditionFailedf(op+".Challenge", "challenger %s must stake > 0", challenger)
	}

	s.setState(t, StateDisputed)
	t.DisputeCount++
	t.LastActor = challenger
	t.UpdatedTs = now
	s.challenges[taskID] = &Challenge{
		TaskID:      taskID,
		Challenger:  challenger,
		Stake:       stake,
		Reason:      reason,
		EvidenceCID: evidenceCID,
		Status:      ChallengePending,
		CreatedTs:   now,
	}
	return s.persistTask(t)
}

// ResolveChallenge is a DAO-only operation resolving a pending or
// under-review challenge, routing the task back to ReadyForExecution
// (Upheld) or Reasoning (Overturned, clearing the prior result).
func (s *Store) ResolveChallenge(taskID uint64, daoAuthority bool, upheld bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !daoAuthority {
		return errs.Unauthorizedf(op+".ResolveChallenge", "resolve_challenge requires DAO authority")
	}
	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".ResolveChallenge", "unknown task %d", taskID)
	}
	c, ok := s.challenges[taskID]
	if !ok {
		return errs.PreconditionFailedf(op+".ResolveChallenge", "task %d has no open challenge", taskID)
	}
	if c.Status != ChallengePending && c.Status != ChallengeUnderReview {
		return errs.PreconditionFailedf(op+".ResolveChallenge", "challenge for task %d is not Pending or UnderReview", taskID)
	}

	now := time.Now()
	if upheld {
		c.Status = ChallengeUpheld
		s.setState(t, StateReadyForExecution)
	} else {
		c.Status = ChallengeOverturned
		s.setState(t, StateReasoning)
		t.ReasoningResult = ""
		t.VerificationScoreBps = 0
	}
	c.ResolvedTs = now
	t.UpdatedTs = now
	t.LastActor = "dao"
	return s.persistTask(t)
}

// Finalize closes out a ReadyForExecution task once its challenge window
// has elapsed, callable only by the original submitter.
func (s *Store) Finalize(taskID uint64, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".Finalize", "unknown task %d", taskID)
	}
	if t.Status != StateReadyForExecution {
		return errs.PreconditionFailedf(op+".Finalize", "task %d is not ReadyForExecution", taskID)
	}
	if caller != t.Submitter {
		return errs.Unauthorizedf(op+".Finalize", "finalize must be called by the submitter")
	}
	now := time.Now()
	if now.Before(t.ChallengePeriodEnd) {
		return errs.PreconditionFailedf(op+".Finalize", "task %d challenge window has not elapsed", taskID)
	}

	s.setState(t, StateFinalized)
	t.LastActor = caller
	t.UpdatedTs = now
	return s.persistTask(t)
}

// Cancel moves any task to Cancelled; reserved for operator/DAO use.
func (s *Store) Cancel(taskID uint64, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return errs.Validationf(op+".Cancel", "unknown task %d", taskID)
	}
	s.setState(t, StateCancelled)
	t.LastActor = actor
	t.UpdatedTs = time.Now()
	return s.persistTask(t)
}

// Slash is a DAO-only operation moving stake out of a node's vault, bounded
// by both the vault balance and the node's current stake.
func (s *Store) Slash(node *Node, vaultLamports uint64, slashAmount uint64, daoAuthority bool, suspend bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !daoAuthority {
		return errs.Unauthorizedf(op+".Slash", "slash requires DAO authority")
	}
	if slashAmount > vaultLamports {
		return errs.PreconditionFailedf(op+".Slash", "slash_amount %d exceeds vault balance %d", slashAmount, vaultLamports)
	}
	if slashAmount > node.StakeAmount {
		return errs.PreconditionFailedf(op+".Slash", "slash_amount %d exceeds node stake %d", slashAmount, node.StakeAmount)
	}

	node.StakeAmount -= slashAmount
	if suspend {
		node.Status = NodeSuspended
	}
	return s.persistNode(node)
}
