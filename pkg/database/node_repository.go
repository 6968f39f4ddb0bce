// Copyright 2025 Certen Protocol
//
// Node Repository - CRUD operations for reasoning nodes and their vaults

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/intentmesh/coordinator/pkg/economy"
	"github.com/intentmesh/coordinator/pkg/tasks"
)

// NodeRepository handles durable persistence of tasks.Node rows plus the
// economy.StakeVault / economy.RewardVault rows they annotate.
type NodeRepository struct {
	client *Client
}

// NewNodeRepository creates a new node repository.
func NewNodeRepository(client *Client) *NodeRepository {
	return &NodeRepository{client: client}
}

// UpsertNode inserts or fully replaces a node row.
func (r *NodeRepository) UpsertNode(ctx context.Context, n *tasks.Node) error {
	query := `
		INSERT INTO nodes (
			owner, controller, model_capability, workflow_affinity, stake_amount,
			base_stake_requirement, dynamic_min_stake, reputation_score_bps,
			cache_hit_rate_bps, verification_success_rate_bps, throughput_score_bps,
			total_inferences, successful_inferences, active_task_id, status,
			pending_rewards, reward_cycle_id, dynamic_multiplier_bps, stake_vault_bump
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (owner) DO UPDATE SET
			controller = EXCLUDED.controller,
			model_capability = EXCLUDED.model_capability,
			workflow_affinity = EXCLUDED.workflow_affinity,
			stake_amount = EXCLUDED.stake_amount,
			base_stake_requirement = EXCLUDED.base_stake_requirement,
			dynamic_min_stake = EXCLUDED.dynamic_min_stake,
			reputation_score_bps = EXCLUDED.reputation_score_bps,
			cache_hit_rate_bps = EXCLUDED.cache_hit_rate_bps,
			verification_success_rate_bps = EXCLUDED.verification_success_rate_bps,
			throughput_score_bps = EXCLUDED.throughput_score_bps,
			total_inferences = EXCLUDED.total_inferences,
			successful_inferences = EXCLUDED.successful_inferences,
			active_task_id = EXCLUDED.active_task_id,
			status = EXCLUDED.status,
			pending_rewards = EXCLUDED.pending_rewards,
			reward_cycle_id = EXCLUDED.reward_cycle_id,
			dynamic_multiplier_bps = EXCLUDED.dynamic_multiplier_bps,
			stake_vault_bump = EXCLUDED.stake_vault_bump`

	_, err := r.client.ExecContext(ctx, query,
		n.Owner, n.Controller, n.ModelCapability, n.WorkflowAffinity, n.StakeAmount,
		n.BaseStakeRequirement, n.DynamicMinStake, n.ReputationScoreBps,
		n.CacheHitRateBps, n.VerificationSuccessRateBps, n.ThroughputScoreBps,
		n.TotalInferences, n.SuccessfulInferences, n.ActiveTaskID, n.Status,
		n.PendingRewards, n.RewardCycleID, n.DynamicMultiplierBps, n.StakeVaultBump,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", n.Owner, err)
	}
	return nil
}

// GetNode retrieves a node by owner.
func (r *NodeRepository) GetNode(ctx context.Context, owner string) (*tasks.Node, error) {
	query := `
		SELECT owner, controller, model_capability, workflow_affinity, stake_amount,
			base_stake_requirement, dynamic_min_stake, reputation_score_bps,
			cache_hit_rate_bps, verification_success_rate_bps, throughput_score_bps,
			total_inferences, successful_inferences, active_task_id, status,
			pending_rewards, reward_cycle_id, dynamic_multiplier_bps, stake_vault_bump
		FROM nodes WHERE owner = $1`

	var n tasks.Node
	err := r.client.QueryRowContext(ctx, query, owner).Scan(
		&n.Owner, &n.Controller, &n.ModelCapability, &n.WorkflowAffinity, &n.StakeAmount,
		&n.BaseStakeRequirement, &n.DynamicMinStake, &n.ReputationScoreBps,
		&n.CacheHitRateBps, &n.VerificationSuccessRateBps, &n.ThroughputScoreBps,
		&n.TotalInferences, &n.SuccessfulInferences, &n.ActiveTaskID, &n.Status,
		&n.PendingRewards, &n.RewardCycleID, &n.DynamicMultiplierBps, &n.StakeVaultBump,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", owner, err)
	}
	return &n, nil
}

// ListActiveNodesByWorkflow returns Active nodes whose workflow affinity
// matches w, the candidate pool ClaimTask callers draw from.
func (r *NodeRepository) ListActiveNodesByWorkflow(ctx context.Context, w tasks.Workflow, limit int) ([]*tasks.Node, error) {
	query := `
		SELECT owner, controller, model_capability, workflow_affinity, stake_amount,
			base_stake_requirement, dynamic_min_stake, reputation_score_bps,
			cache_hit_rate_bps, verification_success_rate_bps, throughput_score_bps,
			total_inferences, successful_inferences, active_task_id, status,
			pending_rewards, reward_cycle_id, dynamic_multiplier_bps, stake_vault_bump
		FROM nodes
		WHERE status = $1 AND workflow_affinity = $2 AND active_task_id = 0
		ORDER BY reputation_score_bps DESC
		LIMIT $3`

	rows, err := r.client.QueryContext(ctx, query, tasks.NodeActive, w, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active nodes for workflow %s: %w", w, err)
	}
	defer rows.Close()

	var out []*tasks.Node
	for rows.Next() {
		var n tasks.Node
		if err := rows.Scan(
			&n.Owner, &n.Controller, &n.ModelCapability, &n.WorkflowAffinity, &n.StakeAmount,
			&n.BaseStakeRequirement, &n.DynamicMinStake, &n.ReputationScoreBps,
			&n.CacheHitRateBps, &n.VerificationSuccessRateBps, &n.ThroughputScoreBps,
			&n.TotalInferences, &n.SuccessfulInferences, &n.ActiveTaskID, &n.Status,
			&n.PendingRewards, &n.RewardCycleID, &n.DynamicMultiplierBps, &n.StakeVaultBump,
		); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// UpsertStakeVault inserts or replaces a node's stake vault row.
func (r *NodeRepository) UpsertStakeVault(ctx context.Context, owner string, v *economy.StakeVault) error {
	query := `
		INSERT INTO stake_vaults (owner, total, pending_slash_amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner) DO UPDATE SET
			total = EXCLUDED.total,
			pending_slash_amount = EXCLUDED.pending_slash_amount`
	_, err := r.client.ExecContext(ctx, query, owner, v.Total, v.PendingSlashAmount)
	if err != nil {
		return fmt.Errorf("failed to upsert stake vault for %s: %w", owner, err)
	}
	return nil
}

// GetStakeVault retrieves a node's stake vault.
func (r *NodeRepository) GetStakeVault(ctx context.Context, owner string) (*economy.StakeVault, error) {
	v := &economy.StakeVault{Owner: owner}
	err := r.client.QueryRowContext(ctx,
		`SELECT total, pending_slash_amount FROM stake_vaults WHERE owner = $1`, owner,
	).Scan(&v.Total, &v.PendingSlashAmount)
	if err == sql.ErrNoRows {
		return nil, ErrStakeVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stake vault for %s: %w", owner, err)
	}
	return v, nil
}

// UpsertRewardVault inserts or replaces a node's reward vault row.
func (r *NodeRepository) UpsertRewardVault(ctx context.Context, owner string, v *economy.RewardVault) error {
	query := `
		INSERT INTO reward_vaults (owner, balance, total_accrued, total_distributed, slash_pool)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner) DO UPDATE SET
			balance = EXCLUDED.balance,
			total_accrued = EXCLUDED.total_accrued,
			total_distributed = EXCLUDED.total_distributed,
			slash_pool = EXCLUDED.slash_pool`
	_, err := r.client.ExecContext(ctx, query, owner, v.Balance, v.TotalAccrued, v.TotalDistributed, v.SlashPool)
	if err != nil {
		return fmt.Errorf("failed to upsert reward vault for %s: %w", owner, err)
	}
	return nil
}

// GetRewardVault retrieves a node's reward vault.
func (r *NodeRepository) GetRewardVault(ctx context.Context, owner string) (*economy.RewardVault, error) {
	v := &economy.RewardVault{}
	err := r.client.QueryRowContext(ctx,
		`SELECT balance, total_accrued, total_distributed, slash_pool FROM reward_vaults WHERE owner = $1`, owner,
	).Scan(&v.Balance, &v.TotalAccrued, &v.TotalDistributed, &v.SlashPool)
	if err == sql.ErrNoRows {
		return nil, ErrRewardVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward vault for %s: %w", owner, err)
	}
	return v, nil
}
