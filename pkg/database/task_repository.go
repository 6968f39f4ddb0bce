// Copyright 2025 Certen Protocol
//
// Task Repository - CRUD operations for reasoning tasks and their disputes

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/intentmesh/coordinator/pkg/tasks"
)

// TaskRepository handles durable persistence of tasks.Task and
// tasks.Challenge rows. pkg/tasks.Store keeps its own authoritative
// in-memory copy backed by pkg/kvdb for restart recovery; this repository
// is the Postgres mirror queried by operators and downstream analytics.
type TaskRepository struct {
	client *Client
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(client *Client) *TaskRepository {
	return &TaskRepository{client: client}
}

// UpsertTask inserts or fully replaces a task row.
func (r *TaskRepository) UpsertTask(ctx context.Context, t *tasks.Task) error {
	query := `
		INSERT INTO tasks (
			task_id, submitter, intent, task_type, workflow, complexity_score,
			criticality, stake_pool, min_node_stake, status, requires_proof,
			proof_policy_level, reasoning_result, verification_score_bps,
			proof_hash, cache_hit_used, result_cid, metadata_hash,
			challenge_window_secs, challenge_period_end, created_ts, updated_ts,
			last_actor, dispute_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		ON CONFLICT (task_id) DO UPDATE SET
			submitter = EXCLUDED.submitter,
			intent = EXCLUDED.intent,
			task_type = EXCLUDED.task_type,
			workflow = EXCLUDED.workflow,
			complexity_score = EXCLUDED.complexity_score,
			criticality = EXCLUDED.criticality,
			stake_pool = EXCLUDED.stake_pool,
			min_node_stake = EXCLUDED.min_node_stake,
			status = EXCLUDED.status,
			requires_proof = EXCLUDED.requires_proof,
			proof_policy_level = EXCLUDED.proof_policy_level,
			reasoning_result = EXCLUDED.reasoning_result,
			verification_score_bps = EXCLUDED.verification_score_bps,
			proof_hash = EXCLUDED.proof_hash,
			cache_hit_used = EXCLUDED.cache_hit_used,
			result_cid = EXCLUDED.result_cid,
			metadata_hash = EXCLUDED.metadata_hash,
			challenge_window_secs = EXCLUDED.challenge_window_secs,
			challenge_period_end = EXCLUDED.challenge_period_end,
			updated_ts = EXCLUDED.updated_ts,
			last_actor = EXCLUDED.last_actor,
			dispute_count = EXCLUDED.dispute_count`

	_, err := r.client.ExecContext(ctx, query,
		t.TaskID, t.Submitter, t.Intent, t.TaskType, t.Workflow, t.ComplexityScore,
		t.Criticality, t.StakePool, t.MinNodeStake, t.Status, t.RequiresProof,
		t.ProofPolicyLevel, t.ReasoningResult, t.VerificationScoreBps,
		t.ProofHash[:], t.CacheHitUsed, t.ResultCID, t.MetadataHash[:],
		t.ChallengeWindowSecs, t.ChallengePeriodEnd, t.CreatedTs, t.UpdatedTs,
		t.LastActor, t.DisputeCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task %d: %w", t.TaskID, err)
	}
	return nil
}

// GetTask retrieves a task by id.
func (r *TaskRepository) GetTask(ctx context.Context, taskID uint64) (*tasks.Task, error) {
	query := `
		SELECT task_id, submitter, intent, task_type, workflow, complexity_score,
			criticality, stake_pool, min_node_stake, status, requires_proof,
			proof_policy_level, reasoning_result, verification_score_bps,
			proof_hash, cache_hit_used, result_cid, metadata_hash,
			challenge_window_secs, challenge_period_end, created_ts, updated_ts,
			last_actor, dispute_count
		FROM tasks WHERE task_id = $1`

	var t tasks.Task
	var proofHash, metadataHash []byte
	var challengePeriodEnd sql.NullTime
	err := r.client.QueryRowContext(ctx, query, taskID).Scan(
		&t.TaskID, &t.Submitter, &t.Intent, &t.TaskType, &t.Workflow, &t.ComplexityScore,
		&t.Criticality, &t.StakePool, &t.MinNodeStake, &t.Status, &t.RequiresProof,
		&t.ProofPolicyLevel, &t.ReasoningResult, &t.VerificationScoreBps,
		&proofHash, &t.CacheHitUsed, &t.ResultCID, &metadataHash,
		&t.ChallengeWindowSecs, &challengePeriodEnd, &t.CreatedTs, &t.UpdatedTs,
		&t.LastActor, &t.DisputeCount,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", taskID, err)
	}
	copy(t.ProofHash[:], proofHash)
	copy(t.MetadataHash[:], metadataHash)
	if challengePeriodEnd.Valid {
		t.ChallengePeriodEnd = challengePeriodEnd.Time
	}
	return &t, nil
}

// ListTasksByStatus returns tasks in a given state, most recently updated first.
func (r *TaskRepository) ListTasksByStatus(ctx context.Context, status tasks.State, limit int) ([]*tasks.Task, error) {
	query := `
		SELECT task_id, submitter, intent, task_type, workflow, complexity_score,
			criticality, stake_pool, min_node_stake, status, requires_proof,
			proof_policy_level, reasoning_result, verification_score_bps,
			proof_hash, cache_hit_used, result_cid, metadata_hash,
			challenge_window_secs, challenge_period_end, created_ts, updated_ts,
			last_actor, dispute_count
		FROM tasks WHERE status = $1
		ORDER BY updated_ts DESC
		LIMIT $2`

	rows, err := r.client.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []*tasks.Task
	for rows.Next() {
		var t tasks.Task
		var proofHash, metadataHash []byte
		var challengePeriodEnd sql.NullTime
		if err := rows.Scan(
			&t.TaskID, &t.Submitter, &t.Intent, &t.TaskType, &t.Workflow, &t.ComplexityScore,
			&t.Criticality, &t.StakePool, &t.MinNodeStake, &t.Status, &t.RequiresProof,
			&t.ProofPolicyLevel, &t.ReasoningResult, &t.VerificationScoreBps,
			&proofHash, &t.CacheHitUsed, &t.ResultCID, &metadataHash,
			&t.ChallengeWindowSecs, &challengePeriodEnd, &t.CreatedTs, &t.UpdatedTs,
			&t.LastActor, &t.DisputeCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		copy(t.ProofHash[:], proofHash)
		copy(t.MetadataHash[:], metadataHash)
		if challengePeriodEnd.Valid {
			t.ChallengePeriodEnd = challengePeriodEnd.Time
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// UpsertChallenge inserts or replaces a challenge row.
func (r *TaskRepository) UpsertChallenge(ctx context.Context, c *tasks.Challenge) error {
	query := `
		INSERT INTO challenges (task_id, challenger, stake, reason, evidence_cid, status, created_ts, resolved_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (task_id) DO UPDATE SET
			challenger = EXCLUDED.challenger,
			stake = EXCLUDED.stake,
			reason = EXCLUDED.reason,
			evidence_cid = EXCLUDED.evidence_cid,
			status = EXCLUDED.status,
			resolved_ts = EXCLUDED.resolved_ts`

	var resolvedTs sql.NullTime
	if !c.ResolvedTs.IsZero() {
		resolvedTs = sql.NullTime{Time: c.ResolvedTs, Valid: true}
	}
	_, err := r.client.ExecContext(ctx, query,
		c.TaskID, c.Challenger, c.Stake, c.Reason, c.EvidenceCID, c.Status, c.CreatedTs, resolvedTs)
	if err != nil {
		return fmt.Errorf("failed to upsert challenge for task %d: %w", c.TaskID, err)
	}
	return nil
}

// GetChallenge retrieves the challenge raised against a task, if any.
func (r *TaskRepository) GetChallenge(ctx context.Context, taskID uint64) (*tasks.Challenge, error) {
	query := `
		SELECT task_id, challenger, stake, reason, evidence_cid, status, created_ts, resolved_ts
		FROM challenges WHERE task_id = $1`

	var c tasks.Challenge
	var resolvedTs sql.NullTime
	err := r.client.QueryRowContext(ctx, query, taskID).Scan(
		&c.TaskID, &c.Challenger, &c.Stake, &c.Reason, &c.EvidenceCID, &c.Status, &c.CreatedTs, &resolvedTs)
	if err == sql.ErrNoRows {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge for task %d: %w", taskID, err)
	}
	if resolvedTs.Valid {
		c.ResolvedTs = resolvedTs.Time
	}
	return &c, nil
}

// CountTasksByStatus returns the number of tasks currently in a given state.
func (r *TaskRepository) CountTasksByStatus(ctx context.Context, status tasks.State) (int64, error) {
	var count int64
	err := r.client.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks with status %s: %w", status, err)
	}
	return count, nil
}

// ExpiredChallengeWindows returns ReadyForExecution tasks whose challenge
// window has already elapsed as of now, the candidate set for Finalize.
func (r *TaskRepository) ExpiredChallengeWindows(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	rows, err := r.client.QueryContext(ctx, `
		SELECT task_id FROM tasks
		WHERE status = $1 AND challenge_period_end <= $2
		ORDER BY challenge_period_end ASC
		LIMIT $3`, tasks.StateReadyForExecution, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired challenge windows: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
