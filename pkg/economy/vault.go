// Copyright 2025 Certen Protocol
//
// Package economy implements the stake/reward economy surrounding a
// reasoning task: per-node stake vaults, a network-wide reward vault,
// dynamic minimum-stake refresh, and reward settlement.
package economy

import (
	"github.com/intentmesh/coordinator/pkg/errs"
	"github.com/intentmesh/coordinator/pkg/tasks"
)

const op = "economy"

// Config holds the network-wide economy parameters, grounded on
// original_source/programs/daollm/src/state/tro.rs's EconomyConfig.
type Config struct {
	StakeFloor            uint64
	StakeCeiling          uint64
	HighPerfMultiplierBps int
	LowPerfPenaltyBps     int
	BaseRewardRateBps     int
}

// DefaultConfig returns a Config with the multiplier tiers the original
// program assumes (high_perf above the base rate, low_perf below it).
func DefaultConfig(stakeFloor, stakeCeiling uint64) Config {
	return Config{
		StakeFloor:            stakeFloor,
		StakeCeiling:          stakeCeiling,
		HighPerfMultiplierBps: 12000,
		LowPerfPenaltyBps:     8000,
		BaseRewardRateBps:     tasks.BPS,
	}
}

// StakeVault tracks one node's staked lamports.
type StakeVault struct {
	Owner             string
	Total             uint64
	PendingSlashAmount uint64
}

// RewardVault tracks the network-wide reward pool lamports are settled
// from, plus the running slash pool.
type RewardVault struct {
	Balance       uint64
	TotalAccrued  uint64
	TotalDistributed uint64
	SlashPool     uint64
}

// QueueRewardSettlement moves amount lamports from the task's stake pool
// into the network reward vault and credits the node's pending_rewards,
// scaled by its performance multiplier. Matches original_source's
// queue_reward_settlement, including the `.max(BPS)` performance floor
// (a floor, not a cap, preserved even though it reads generously).
func QueueRewardSettlement(t *tasks.Task, node *tasks.Node, vault *RewardVault, amount uint64) error {
	if t.Status != tasks.StateReadyForExecution && t.Status != tasks.StateFinalized {
		return errs.PreconditionFailedf(op+".QueueRewardSettlement", "task %d is not ReadyForExecution or Finalized", t.TaskID)
	}
	if t.StakePool < amount {
		return errs.PreconditionFailedf(op+".QueueRewardSettlement", "task %d stake_pool %d below settlement amount %d", t.TaskID, t.StakePool, amount)
	}

	t.StakePool -= amount
	vault.Balance += amount
	vault.TotalAccrued += amount

	perfBps := node.ReputationScoreBps + node.DynamicMultiplierBps
	if perfBps < tasks.BPS {
		perfBps = tasks.BPS
	}
	credited := amount * uint64(perfBps) / uint64(tasks.BPS)
	node.PendingRewards += credited
	return nil
}

// SettleReward pays out min(pending, vault balance) to the node, clearing
// that amount from pending_rewards and the vault balance.
func SettleReward(node *tasks.Node, vault *RewardVault) (uint64, error) {
	paid := node.PendingRewards
	if vault.Balance < paid {
		paid = vault.Balance
	}
	if paid == 0 {
		return 0, nil
	}
	node.PendingRewards -= paid
	vault.Balance -= paid
	vault.TotalDistributed += paid
	return paid, nil
}

// Multiplier selects the performance-tiered reward multiplier for a
// node's reputation, per section 4.5.5.
func Multiplier(cfg Config, reputationBps int) int {
	switch {
	case reputationBps >= 8000:
		return cfg.HighPerfMultiplierBps
	case reputationBps <= 4000:
		return cfg.LowPerfPenaltyBps
	default:
		return cfg.BaseRewardRateBps
	}
}

// UpdateDynamicStake recomputes a node's dynamic minimum stake and reward
// multiplier from its current reputation. Formula and clamp are exact:
// new_min = stake_floor + (stake_ceiling-stake_floor)*(BPS-reputation)/BPS,
// floored at stake_floor.
func UpdateDynamicStake(cfg Config, node *tasks.Node) {
	reputation := node.ReputationScoreBps
	if reputation < 0 {
		reputation = 0
	}
	if reputation > tasks.BPS {
		reputation = tasks.BPS
	}
	span := cfg.StakeCeiling - cfg.StakeFloor
	newMin := cfg.StakeFloor + span*uint64(tasks.BPS-reputation)/uint64(tasks.BPS)
	if newMin < cfg.StakeFloor {
		newMin = cfg.StakeFloor
	}
	node.DynamicMinStake = newMin
	node.DynamicMultiplierBps = Multiplier(cfg, reputation)
}

// Slash moves slashAmount lamports from a node's stake vault into the
// network reward vault, recording the slash on both the node's pending
// slash amount and the vault's running slash pool. DAO authorization is
// enforced by tasks.Store.Slash, which callers invoke alongside this.
func Slash(stakeVault *StakeVault, rewardVault *RewardVault, node *tasks.Node, slashAmount uint64) error {
	if slashAmount > stakeVault.Total {
		return errs.PreconditionFailedf(op+".Slash", "slash_amount %d exceeds stake vault total %d", slashAmount, stakeVault.Total)
	}
	if slashAmount > node.StakeAmount {
		return errs.PreconditionFailedf(op+".Slash", "slash_amount %d exceeds node stake %d", slashAmount, node.StakeAmount)
	}
	stakeVault.Total -= slashAmount
	rewardVault.Balance += slashAmount
	rewardVault.TotalAccrued += slashAmount
	node.StakeAmount -= slashAmount
	stakeVault.PendingSlashAmount += slashAmount
	rewardVault.SlashPool += slashAmount
	return nil
}
